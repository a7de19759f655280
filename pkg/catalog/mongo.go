package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const productsCollection = "products"

// MongoBackend stores products in the products collection of a database.
type MongoBackend struct {
	coll *mongo.Collection
}

// NewMongoBackend creates a backend on db.
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{coll: db.Collection(productsCollection)}
}

func (b *MongoBackend) Scoped(tenantID uuid.UUID) Store {
	return &mongoStore{coll: b.coll, tenantID: tenantID.String()}
}

// productDoc is keyed by tenant and product id, so a product id chosen by
// one tenant never collides with another tenant's document.
type productDoc struct {
	Key           string    `bson:"_id"`
	ID            string    `bson:"product_id"`
	TenantID      string    `bson:"tenant_id"`
	SKU           string    `bson:"sku"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description"`
	Category      string    `bson:"category"`
	Price         int64     `bson:"price"`
	StockQuantity int       `bson:"stock_quantity"`
	Active        bool      `bson:"active"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toDoc(p *Product) productDoc {
	return productDoc{
		Key:           docKey(p.TenantID.String(), p.ID),
		ID:            p.ID.String(),
		TenantID:      p.TenantID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func docKey(tenantID string, id uuid.UUID) string {
	return tenantID + "/" + id.String()
}

func (d productDoc) product() (*Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode product id: %w", err)
	}
	tid, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("decode tenant id: %w", err)
	}
	return &Product{
		ID:            id,
		TenantID:      tid,
		SKU:           d.SKU,
		Name:          d.Name,
		Description:   d.Description,
		Category:      d.Category,
		Price:         d.Price,
		StockQuantity: d.StockQuantity,
		Active:        d.Active,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}

type mongoStore struct {
	coll     *mongo.Collection
	tenantID string
}

// scope prefixes extra conditions with the tenant predicate.
func (s *mongoStore) scope(extra ...bson.E) bson.D {
	return append(bson.D{{Key: "tenant_id", Value: s.tenantID}}, extra...)
}

func (s *mongoStore) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.findOne(ctx, s.scope(bson.E{Key: "_id", Value: docKey(s.tenantID, id)}))
}

func (s *mongoStore) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.findOne(ctx, s.scope(bson.E{Key: "sku", Value: sku}))
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.D) (*Product, error) {
	var doc productDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return doc.product()
}

func (s *mongoStore) List(ctx context.Context, f Filter, p Page) ([]*Product, error) {
	p = p.normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(p.Offset)).
		SetLimit(int64(p.Limit))

	cur, err := s.coll.Find(ctx, s.filtered(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make([]*Product, 0, len(docs))
	for _, d := range docs {
		prod, err := d.product()
		if err != nil {
			return nil, err
		}
		out = append(out, prod)
	}
	return out, nil
}

func (s *mongoStore) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, s.filtered(f))
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *mongoStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, s.scope(bson.E{Key: "_id", Value: docKey(s.tenantID, id)}), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return n > 0, nil
}

func (s *mongoStore) Insert(ctx context.Context, p *Product) error {
	if p.TenantID.String() != s.tenantID {
		return fmt.Errorf("%w: product tenant does not match store", ErrInvalidProduct)
	}
	if _, err := s.coll.InsertOne(ctx, toDoc(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *mongoStore) Update(ctx context.Context, p *Product) error {
	set := bson.D{
		{Key: "sku", Value: p.SKU},
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "category", Value: p.Category},
		{Key: "price", Value: p.Price},
		{Key: "stock_quantity", Value: p.StockQuantity},
		{Key: "active", Value: p.Active},
		{Key: "updated_at", Value: p.UpdatedAt},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err := s.coll.FindOneAndUpdate(ctx,
		s.scope(bson.E{Key: "_id", Value: docKey(s.tenantID, p.ID)}),
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return ErrDuplicateKey
		}
		return fmt.Errorf("update product: %w", err)
	}
	p.CreatedAt = doc.CreatedAt.UTC()
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, s.scope(bson.E{Key: "_id", Value: docKey(s.tenantID, id)}))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) filtered(f Filter) bson.D {
	var extra []bson.E
	if f.Category != "" {
		extra = append(extra, bson.E{Key: "category", Value: f.Category})
	}
	if f.Active != nil {
		extra = append(extra, bson.E{Key: "active", Value: *f.Active})
	}
	if f.Search != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		extra = append(extra, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "sku", Value: re}},
		}})
	}
	return s.scope(extra...)
}

// ProvisionMongo creates the per-tenant unique SKU index.
func ProvisionMongo(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(productsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tenant_sku_unique"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("tenant_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("provision catalog indexes: %w", err)
	}
	return nil
}
