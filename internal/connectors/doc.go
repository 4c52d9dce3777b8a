// Package connectors provides tracker implementations for the sources
// the pipeline can harvest. Each connector knows how to list changed
// records and fetch their raw payloads from a specific tracker type.
package connectors
