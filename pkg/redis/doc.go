// Package redis connects to Redis with go-redis/v9 and exposes a health probe.
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
