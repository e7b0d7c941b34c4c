// Package hardware initialises periph.io host drivers and resolves GPIO lines
// by name.
package hardware
