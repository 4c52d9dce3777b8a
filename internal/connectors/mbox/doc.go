// Package mbox harvests mailing-list archives in mbox format from the
// local filesystem.
package mbox
