// Package redisstore provides a Redis-backed implementation of the
// kvstore.Substrate interface for server-side deployments, along with client
// initialization and health checking.
//
// On devices, sessions and preferences live in local files. When the same
// auth and preference stack runs inside a backend-for-frontend service, this
// package puts them in Redis instead, namespaced per subject by a key prefix.
//
// # Usage
//
//	client, err := redisstore.Connect(ctx, redisstore.Config{
//		ConnectionURL: "redis://localhost:6379/0",
//		RetryAttempts: 3,
//		RetryInterval: 5 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redisstore.New(client, "clientkit:user-1:",
//		redisstore.WithTTL(30*24*time.Hour))
//
//	if err := store.Set(ctx, "selected_language", `"es"`); err != nil {
//		return err
//	}
//
// Connection failures surface wrapped in kvstore.ErrUnavailable so callers
// can distinguish an unreachable substrate from an absent value.
package redisstore
