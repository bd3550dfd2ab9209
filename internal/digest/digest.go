// Package digest computes segment digests and folds them into
// multipart-ETag style composite checksums.
package digest

import (
	"encoding/hex"
	"io"
	"os"
)

// ComputeDigest hashes content and returns the lowercase hex digest.
func ComputeDigest(content []byte, alg Algorithm) (string, error) {
	h, err := alg.New()
	if err != nil {
		return "", err
	}
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeDigestReader hashes everything read from r.
// It returns the hex digest and the number of bytes consumed.
func ComputeDigestReader(r io.Reader, alg Algorithm) (string, int64, error) {
	h, err := alg.New()
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ComputeDigestFile hashes the file at path.
func ComputeDigestFile(path string, alg Algorithm) (string, int64, error) {
	if !alg.Valid() {
		_, err := alg.New()
		return "", 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()
	return ComputeDigestReader(f, alg)
}

// ValidateSegment checks that seg is a canonical lowercase hex digest for alg.
func ValidateSegment(seg string, alg Algorithm) error {
	if !alg.Valid() {
		_, err := alg.New()
		return err
	}
	if reason := segmentProblem(seg, alg); reason != "" {
		return &InputError{Index: -1, Segment: seg, Reason: reason}
	}
	return nil
}

func segmentProblem(seg string, alg Algorithm) string {
	if seg == "" {
		return "empty digest"
	}
	if len(seg)%2 != 0 {
		return "odd length"
	}
	if len(seg) != alg.HexLen() {
		return "wrong length for " + alg.String()
	}
	if !isLowerHex(seg) {
		return "not lowercase hex"
	}
	return ""
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
