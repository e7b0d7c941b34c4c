// Package logger wraps zap for the node and logger binaries:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and adjustment,
//   - convenience functions (InfoKV, ErrorKV, etc.).
//
// Services take a context and pull the logger from it, so a session id or
// component name attached once shows up on every line below that point.
package logger
