// Package twitter harvests tweets matching a search query through the
// application-only REST API.
package twitter
