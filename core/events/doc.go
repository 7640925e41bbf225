// Package events defines the events emitted on the internal event bus.
//
// Available event types:
//   - SimulationEvent: a simulation attempt finished, successfully or not
package events
