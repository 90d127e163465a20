// Package netman is the asynchronous NetworkManager client consumed by the bridge.
//
// Every method may block on the system bus and must only be called from
// background goroutines. The synchronous poll loop never touches this package
// directly; it goes through internal/bridge.
//
// # Connection Lifetime
//
// A Connection is created once by Service.Connect and then shared by value
// between goroutines. There is no reconnect path: if the bus connection dies,
// calls fail and the failure is surfaced by the caller.
//
// # Events
//
// SubscribeEvents returns a receive-only channel. The channel is closed when
// the underlying signal stream ends (bus disconnect or context cancellation),
// which lets consumers tell a finished stream from an idle one.
package netman
