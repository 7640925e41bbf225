// Package simulation implements the what-if staffing engine.
//
// A run validates its inputs, builds an ephemeral fleet from the oldest N
// drivers, orders the pending deliveries by deadline and then walks them once,
// greedily handing each order to the eligible driver with the most remaining
// hours. Every decision is streamed to an Observer; the Aggregator observer
// turns the stream into fleet KPIs and the persisted allocation list.
//
// The engine itself is pure and synchronous. Runner wraps it with data
// access, persistence, metrics and the run log.
package simulation
