// Package seriallog is the host-side companion of the node. It tails the
// node's report stream from a serial device into an append-only log file,
// and recovers the device fingerprint from such logs.
//
// Terminal devices are opened as serial ports in raw 8N1 mode at the
// configured speed (9600 baud by default). Any other path is read as a plain
// file, which lets a saved capture be replayed into the log.
package seriallog
