package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultRegionSize is the size of the sampled region.
	DefaultRegionSize = 2048
	// DefaultStart is the first sampled address.
	DefaultStart = 256
	// DefaultBits is the fingerprint length.
	DefaultBits = 256

	// LinePrefix starts every fingerprint line of the report stream.
	LinePrefix = "PUF: "
)

// Options select the sampled address range.
type Options struct {
	// Start is the first address read.
	Start int
	// Bits is the number of addresses read, one bit each. Must be a multiple of 8.
	Bits int
}

// DefaultOptions returns the reference address range.
func DefaultOptions() Options {
	return Options{
		Start: DefaultStart,
		Bits:  DefaultBits,
	}
}

// Fingerprint is the derived bit string. Bit i lives in byte i/8 at position i%8.
type Fingerprint []byte

// errInvalidLength is returned for a length that is not a positive multiple of 8.
var errInvalidLength = errors.New("fingerprint length must be a positive multiple of 8")

// Generate reads one byte per bit from consecutive addresses starting at
// opts.Start, wrapping at the region boundary, and keeps the least significant
// bit of each.
func Generate(region Region, opts Options) (Fingerprint, error) {
	if opts.Bits <= 0 || opts.Bits%8 != 0 {
		return nil, fmt.Errorf("%w: %d", errInvalidLength, opts.Bits)
	}

	if region.Size() <= 0 {
		return nil, errEmptyRegion
	}

	fp := make(Fingerprint, opts.Bits/8)

	for i := range opts.Bits {
		bit := region.ByteAt(wrap(opts.Start+i, region.Size())) & 1
		fp[i/8] |= bit << (i % 8)
	}

	return fp, nil
}

// Bit returns bit i of the fingerprint.
func (f Fingerprint) Bit(i int) byte {
	return f[i/8] >> (i % 8) & 1
}

// String renders the fingerprint as uppercase hex, two digits per byte, byte 0 first.
func (f Fingerprint) String() string {
	return strings.ToUpper(hex.EncodeToString(f))
}

// Line renders the fingerprint as it appears in the report stream.
func (f Fingerprint) Line() string {
	return LinePrefix + f.String()
}

// linePattern matches a fingerprint line anywhere in a text.
var linePattern = regexp.MustCompile(`PUF: ((?:[0-9A-F]{2})+)`)

// errNoFingerprint is returned when a text carries no fingerprint line.
var errNoFingerprint = errors.New("no fingerprint found")

// Parse decodes a single fingerprint line.
func Parse(line string) (Fingerprint, error) {
	match := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return nil, errNoFingerprint
	}

	fp, err := hex.DecodeString(match[1])
	if err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}

	return fp, nil
}

// FindLast returns the most recent fingerprint in a report text.
func FindLast(text string) (Fingerprint, error) {
	matches := linePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, errNoFingerprint
	}

	fp, err := hex.DecodeString(matches[len(matches)-1][1])
	if err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}

	return fp, nil
}
