// Package elastic provides the search-engine adapters: index
// lifecycle, cursor queries, bulk writes and the engine-backed raw
// payload tier. All requests go over plain HTTP against the REST API.
package elastic
