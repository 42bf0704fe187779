package decompress

// Algorithm identifies the codec used to decode a compressed region.
type Algorithm string

const (
	AlgorithmNone    Algorithm = "none"
	AlgorithmLz4     Algorithm = "lz4"
	AlgorithmLzma    Algorithm = "lzma"
	AlgorithmZlib    Algorithm = "zlib"
	AlgorithmDeflate Algorithm = "deflate"
	AlgorithmGzip    Algorithm = "gzip"
)

// CustomFunc decodes a custom algorithm's compressed bytes into exactly
// expectedSize bytes, or returns an error.
type CustomFunc func(compressed []byte, expectedSize int64) ([]byte, error)

var customRegistry = map[string]CustomFunc{}

// RegisterCustom registers a decoder for a named custom algorithm,
// consulted by Decompress before the unknown-algorithm passthrough rule.
// Grounded on original_source/aegis-plugins/unity/src/compression.rs's
// pluggable custom-codec table.
func RegisterCustom(name string, fn CustomFunc) {
	customRegistry[name] = fn
}

// CustomAlgorithm builds the Algorithm value for a registered custom codec.
func CustomAlgorithm(name string) Algorithm {
	return Algorithm("custom:" + name)
}
