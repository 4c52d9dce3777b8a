// Package services contains the core pipeline logic, independent of
// any concrete tracker or storage engine.
package services
