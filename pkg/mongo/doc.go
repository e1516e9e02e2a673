// Package mongo manages MongoDB connections with the official v2 driver.
//
// Configuration comes from environment variables (see Config). New retries the
// initial connection and verifies it with a ping; Healthcheck returns a probe
// suitable for readiness endpoints.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
