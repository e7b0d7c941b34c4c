// Package clock provides the node's time base: milliseconds since start and
// blocking pauses that honour context cancellation.
//
// Manual is a test clock whose sleeps advance time instantly.
package clock
