// Package registry holds the two correlation tables driven by the dispatcher:
//
//   - [PromiseStore]: one-shot waiters. Every waiter under a key is completed
//     together when a matching event arrives, then the key is cleared.
//   - [ListenerStore]: persistent listeners, either keyed or unfiltered.
//     Success deliveries read the store without mutating it; error
//     deliveries use the DetachAndGet family so keyed listeners terminate on
//     their first failure.
//
// Neither store is synchronized. Both must only be used from the single
// goroutine that owns them (see package dispatch).
package registry
