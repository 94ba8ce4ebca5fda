// Package redis connects to Redis with retries and exposes a health check.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	srv := httpserver.New(httpserver.WithHealthCheck("redis", redis.Healthcheck(client)))
package redis
