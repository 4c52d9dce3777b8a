// Package driven defines the outbound ports of the harvest pipeline:
// interfaces implemented by adapters that the core calls out to
// (trackers, the search engine, raw stores, identity management).
//
// Ports are small and accept context.Context on every blocking
// operation. Implementations live under internal/adapters and
// internal/connectors.
package driven
