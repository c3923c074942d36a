// Package broadcast fans typed messages out to many subscribers.
//
// MemoryBroadcaster is the in-process implementation. Broadcast never blocks:
// when a subscriber's buffer is full the oldest pending message is discarded
// in favour of the new one, so a slow reader always ends up seeing the most
// recent value. That makes it suitable for publishing state snapshots, where
// only the latest value matters.
//
//	b := broadcast.NewMemoryBroadcaster[State](1, broadcast.WithReplayLast())
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	for msg := range sub.Receive(ctx) {
//		render(msg.Data)
//	}
//
// With WithReplayLast a new subscriber immediately receives the last message
// broadcast before it subscribed.
package broadcast
