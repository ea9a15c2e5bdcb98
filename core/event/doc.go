// Package event provides the in-process broadcast bus for auth lifecycle
// events.
//
// The app shell subscribes to hear about forced logouts and session
// refreshes; the request pipeline and auth client publish them. Delivery is
// fan-out: every subscriber receives every event published after it
// subscribed. Subscriber channels are buffered and a slow subscriber is
// skipped with a warning rather than blocking the publisher — event volume
// here is a handful per session, so dropped-on-overflow is an acceptable
// failure mode and an observable one.
//
//	bus := event.NewBus(event.WithLogger(log))
//	defer bus.Close()
//
//	sub := bus.Subscribe()
//	go func() {
//		for ev := range sub.C {
//			if ev.Name == event.SignedOut {
//				// clear UI state, route to landing
//			}
//		}
//	}()
package event
