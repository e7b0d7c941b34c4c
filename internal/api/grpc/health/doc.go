// Package health exposes the node over the standard gRPC health checking
// protocol. The node service reports SERVING while sensor reads succeed and
// NOT_SERVING after a failed read.
package health
