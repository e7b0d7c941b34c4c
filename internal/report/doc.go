// Package report writes the node's human-readable text stream.
//
// The literals are consumed by the serial logger and downstream tooling, so
// they are kept byte-for-byte stable.
package report
