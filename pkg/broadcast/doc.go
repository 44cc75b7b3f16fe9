// Package broadcast provides type-safe message broadcasting with
// subscriber management. It enables one-to-many communication with
// automatic cleanup and buffering.
//
// Two implementations share the Broadcaster interface:
//
//   - MemoryBroadcaster delivers within the current process and is the
//     right choice for single-instance deployments.
//   - RedisBroadcaster relays messages through a Redis pub/sub channel
//     so that every instance of a scaled deployment sees every message.
//
// Basic usage:
//
//	b := broadcast.NewMemoryBroadcaster[string](10)
//	defer b.Close()
//
//	ctx := context.Background()
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
//
// Both implementations drop messages for slow consumers instead of
// blocking the publisher.
package broadcast
