// Package fingerprint derives a device fingerprint from the power-up content
// of a memory region, in the manner of an SRAM physically unclonable function.
//
// The region is never written by this package. Its bits are whatever the
// hardware left there, which is the only source of variation: this is not a
// random number generator and the result is not a secret. A hosted Go build
// cannot observe uninitialized memory (the allocator zero-fills), so the
// region is either a raw dump captured on the device or a dedicated buffer
// that nothing writes to.
package fingerprint
