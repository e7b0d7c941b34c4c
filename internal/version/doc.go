// Package version exposes build metadata for the zensor binaries.
//
// Version, Commit and BuildTime are injected via -ldflags and default to
// values suitable for local builds.
package version
