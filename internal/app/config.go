package app

import (
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Config is the environment of every tenantkit binary.
type Config struct {
	Log     logger.Config
	HTTP    httpserver.Config
	PG      pg.Config // pool settings applied to every postgres partition
	Mongo   mongo.Config
	Redis   redis.Config
	Storage storage.Config
	Tenant  tenant.DirectoryConfig
}
