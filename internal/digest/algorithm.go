package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm identifies the hash used for segment digests and the composite.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// DefaultAlgorithm matches the S3 multipart ETag convention.
const DefaultAlgorithm = MD5

// Algorithms lists supported algorithms in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, BLAKE3}
}

// ParseAlgorithm resolves a user-supplied algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5":
		return MD5, nil
	case "sha1", "sha-1":
		return SHA1, nil
	case "sha256", "sha-256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// Size returns the digest width in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case BLAKE3:
		return 32
	default:
		return 0
	}
}

// HexLen returns the length of the canonical hex encoding.
func (a Algorithm) HexLen() int {
	return 2 * a.Size()
}

// Valid reports whether the algorithm is supported.
func (a Algorithm) Valid() bool {
	return a.Size() > 0
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
	}
}

func (a Algorithm) String() string {
	return string(a)
}
