// Package rest serves the node status over HTTP: a JSON snapshot, a liveness
// check and the Prometheus metrics endpoint. Cross-origin requests are allowed
// so that a browser dashboard can poll the node directly.
package rest
