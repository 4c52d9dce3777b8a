// Package github harvests pull requests from a repository through the
// REST API.
package github
