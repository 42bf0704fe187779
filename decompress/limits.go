// Package decompress implements the Safe Decompressor: bounded LZ4/LZMA/
// zlib/gzip/deflate/passthrough decoding with decompression-bomb defences,
// bomb-defence checks.
package decompress

import "time"

// Limits bounds a single decompression call.
type Limits struct {
	MaxDecompressed int64
	MaxRatio        int64
	Timeout         time.Duration
	MemoryCap       int64
}

// DefaultLimits is the general-purpose profile: 512 MiB / 1000x / 30s / 1 GiB.
func DefaultLimits() Limits {
	return Limits{
		MaxDecompressed: 512 * 1024 * 1024,
		MaxRatio:        1000,
		Timeout:         30 * time.Second,
		MemoryCap:       1024 * 1024 * 1024,
	}
}

// SmallFileLimits is the small-file profile: 64 MiB / 100x / 5s / 128 MiB.
func SmallFileLimits() Limits {
	return Limits{
		MaxDecompressed: 64 * 1024 * 1024,
		MaxRatio:        100,
		Timeout:         5 * time.Second,
		MemoryCap:       128 * 1024 * 1024,
	}
}

// EnterpriseLimits is the enterprise profile: 256 MiB / 50x / 10s / 512 MiB.
func EnterpriseLimits() Limits {
	return Limits{
		MaxDecompressed: 256 * 1024 * 1024,
		MaxRatio:        50,
		Timeout:         10 * time.Second,
		MemoryCap:       512 * 1024 * 1024,
	}
}
