package fingerprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Region is a fixed-size byte-addressable memory area. Reads never fail.
type Region interface {
	// Size returns the number of addressable bytes.
	Size() int
	// ByteAt returns the byte at addr modulo Size.
	ByteAt(addr int) byte
}

// Bytes is a Region over an existing slice.
type Bytes []byte

// Size implements Region.
func (b Bytes) Size() int { return len(b) }

// ByteAt implements Region. Addresses wrap around the slice length.
func (b Bytes) ByteAt(addr int) byte {
	if len(b) == 0 {
		return 0
	}

	return b[wrap(addr, len(b))]
}

// errEmptyRegion is returned for a zero-sized region.
var errEmptyRegion = errors.New("region size must be positive")

// NewUninitialized allocates a dedicated buffer of the given size that no code
// writes to. Its content is whatever the runtime provides, which on a hosted
// build is all zeroes.
func NewUninitialized(size int) (Bytes, error) {
	if size <= 0 {
		return nil, errEmptyRegion
	}

	return make(Bytes, size), nil
}

// LoadDump reads a raw memory dump and exposes its first size bytes as a region.
// A dump shorter than size is padded with zeroes.
func LoadDump(path string, size int) (Bytes, error) {
	if size <= 0 {
		return nil, errEmptyRegion
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read memory dump: %w", err)
	}

	region := make(Bytes, size)
	copy(region, contents)

	return region, nil
}

// wrap maps addr into [0, size).
func wrap(addr, size int) int {
	addr %= size
	if addr < 0 {
		addr += size
	}

	return addr
}
