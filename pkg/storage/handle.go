package storage

import (
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DirectorySchema is the namespace of the tenant directory in the shared store.
const DirectorySchema = "public"

// Handle is a session bound to one tenant's partition. It belongs to a single
// operation or request and must be released on every path.
type Handle struct {
	tenantID  uuid.UUID
	strategy  tenant.Strategy
	namespace string
	session   Session
	once      sync.Once
}

func newHandle(id uuid.UUID, strategy tenant.Strategy, namespace string, s Session) *Handle {
	return &Handle{tenantID: id, strategy: strategy, namespace: namespace, session: s}
}

// TenantID returns the tenant the handle is bound to, or uuid.Nil for the directory handle.
func (h *Handle) TenantID() uuid.UUID { return h.tenantID }

// Strategy returns the isolation strategy of the partition.
func (h *Handle) Strategy() tenant.Strategy { return h.strategy }

// Namespace is the schema (SQL) or database (documents) holding the tenant's data.
func (h *Handle) Namespace() string { return h.namespace }

// Session returns the raw session.
func (h *Handle) Session() Session { return h.session }

// SQL returns the statement surface when the partition is relational.
func (h *Handle) SQL() (Querier, bool) {
	s, ok := h.session.(SQLSession)
	if !ok {
		return nil, false
	}
	return s.Querier(), true
}

// Documents returns the tenant's database when the partition is a document store.
func (h *Handle) Documents() (*mongo.Database, bool) {
	s, ok := h.session.(DocumentSession)
	if !ok {
		return nil, false
	}
	return s.Database(h.namespace), true
}

// Release returns the session to its pool. Safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(h.session.Release)
}
