// Package driving defines the inbound ports of the harvest pipeline:
// interfaces the CLI adapters call to run a harvest.
package driving
