// Package compression frames queue payloads so a consumer can decode messages
// from producers with a different compression setting.
package compression

import (
	"fmt"
	"strings"
)

// Algorithm defines compression types
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

// frameMarker starts every framed payload. JSON documents never begin with a
// NUL byte, so unframed JSON is passed through untouched by Unframe.
const frameMarker byte = 0x00

// Compressor interface for compression algorithms
type Compressor interface {
	// Compress compresses data
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm type
	Algorithm() Algorithm
}

// String returns the configuration name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm. Empty means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("unsupported compression: %s (supported: none, snappy)", name)
	}
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return &NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// Frame compresses data with c and prefixes the marker and algorithm byte.
// The None compressor returns data as is, without a frame.
func Frame(c Compressor, data []byte) ([]byte, error) {
	if c == nil || c.Algorithm() == None {
		return data, nil
	}

	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}

	framed := make([]byte, 0, len(body)+2)
	framed = append(framed, frameMarker, byte(c.Algorithm()))
	return append(framed, body...), nil
}

// Unframe reverses Frame. Payloads that do not start with the marker are
// returned unchanged.
func Unframe(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != frameMarker {
		return data, nil
	}

	c, err := GetCompressor(Algorithm(data[1]))
	if err != nil {
		return nil, err
	}
	return c.Decompress(data[2:])
}

// NoneCompressor is a no-op compressor
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Algorithm() Algorithm {
	return None
}
