// Package history persists node iterations as JSON lines.
//
// Each line is the protojson encoding of a google.protobuf.Struct. The History
// type implements telemetry.Sink so the node can append to it directly, and
// Load reads the file back for offline analysis.
package history
