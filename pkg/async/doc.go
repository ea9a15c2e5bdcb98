// Package async provides a small future abstraction for background tasks
// whose outcome must stay observable.
//
// The client core uses it where the original design would fire-and-forget:
// the secondary-substrate session write runs in the background, but its
// completion (or failure) is always awaitable and logged, never dropped.
//
//	future := async.Exec(ctx, blob, func(ctx context.Context, b string) error {
//		return secondary.Set(ctx, key, b)
//	})
//
//	// later, or from a teardown path:
//	if err := future.AwaitWithTimeout(time.Second); err != nil {
//		log.Warn("secondary sync did not land", logger.Error(err))
//	}
package async
