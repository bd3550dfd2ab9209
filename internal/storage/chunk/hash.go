package chunk

import "github.com/kk-code-lab/segetag/internal/digest"

// Hash computes the hex digest of a chunk with the given algorithm.
func Hash(data []byte, alg digest.Algorithm) (string, error) {
	return digest.ComputeDigest(data, alg)
}
