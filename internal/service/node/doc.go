// Package node runs the sensor node loop: fingerprint, read, report, actuate,
// pause. It also wires the optional telemetry sinks and status endpoints
// around the loop.
package node
