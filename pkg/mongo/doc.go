// Package mongo builds MongoDB clients with go.mongodb.org/mongo-driver/v2.
//
// NewForURI applies pool limits and retry flags from Config to a
// connection descriptor, pings the deployment and retries transient
// failures under Config.Retry. Dedicated tenant partitions described by a
// mongodb:// descriptor share one Config.
//
// # Usage
//
//	client, err := mongo.NewForURI(ctx, cfg, dsn)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	db := client.Database(mongo.DatabaseName(dsn, "catalog"))
//	check := mongo.Healthcheck(client)
package mongo
