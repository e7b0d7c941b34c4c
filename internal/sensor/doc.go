// Package sensor defines the temperature/humidity source used by the node.
//
// Implementations return a fresh sample per call and wrap every failure
// with ErrReadFailed.
package sensor
