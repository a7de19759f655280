package catalog_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/mongo"
)

func TestGateway_Mongo(t *testing.T) {
	uri := os.Getenv("MONGODB_URL")
	if uri == "" || testing.Short() {
		t.Skip("MONGODB_URL not set")
	}

	ctx := context.Background()
	client, err := mongo.NewForURI(ctx, mongo.Config{}, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, mongo.Healthcheck(client)(ctx))

	runGatewaySuite(t, func(t *testing.T) catalog.Backend {
		db := client.Database("test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
		require.NoError(t, catalog.ProvisionMongo(ctx, db))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })
		return catalog.NewMongoBackend(db)
	})
}
