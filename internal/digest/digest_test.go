package digest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComputeDigestKnownVectors(t *testing.T) {
	cases := []struct {
		alg     Algorithm
		content string
		want    string
	}{
		{MD5, "", "d41d8cd98f00b204e9800998ecf8427e"},
		{MD5, "hello world", "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{SHA1, "hello world", "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"},
		{SHA256, "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{BLAKE3, "", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}
	for _, tc := range cases {
		t.Run(string(tc.alg)+"/"+tc.content, func(t *testing.T) {
			got, err := ComputeDigest([]byte(tc.content), tc.alg)
			if err != nil {
				t.Fatalf("ComputeDigest: %v", err)
			}
			if got != tc.want {
				t.Fatalf("digest mismatch: got %s want %s", got, tc.want)
			}
			if len(got) != tc.alg.HexLen() {
				t.Fatalf("hex length %d, want %d", len(got), tc.alg.HexLen())
			}
		})
	}
}

func TestComputeDigestReaderMatchesBytes(t *testing.T) {
	content := strings.Repeat("segment-data-", 1000)
	for _, alg := range Algorithms() {
		want, err := ComputeDigest([]byte(content), alg)
		if err != nil {
			t.Fatalf("ComputeDigest(%s): %v", alg, err)
		}
		got, n, err := ComputeDigestReader(strings.NewReader(content), alg)
		if err != nil {
			t.Fatalf("ComputeDigestReader(%s): %v", alg, err)
		}
		if got != want || n != int64(len(content)) {
			t.Fatalf("%s: got %s/%d want %s/%d", alg, got, n, want, len(content))
		}
	}
}

func TestComputeDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, n, err := ComputeDigestFile(path, MD5)
	if err != nil {
		t.Fatalf("ComputeDigestFile: %v", err)
	}
	if got != "5eb63bbbe01eeed093cb22bb8f5acdc3" || n != 11 {
		t.Fatalf("unexpected result %s/%d", got, n)
	}
	if _, _, err := ComputeDigestFile(filepath.Join(t.TempDir(), "missing"), MD5); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, _, err := ComputeDigestFile(path, Algorithm("crc32")); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected unsupported algorithm, got %v", err)
	}
}

func TestComputeDigestUnsupported(t *testing.T) {
	if _, err := ComputeDigest([]byte("x"), Algorithm("whirlpool")); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"md5":     MD5,
		"MD5":     MD5,
		"sha-1":   SHA1,
		"SHA256":  SHA256,
		" blake3": BLAKE3,
	}
	for in, want := range cases {
		got, err := ParseAlgorithm(in)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAlgorithm(%q)=%s want %s", in, got, want)
		}
	}
	if _, err := ParseAlgorithm("crc32"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestValidateSegment(t *testing.T) {
	cases := []struct {
		name string
		seg  string
		ok   bool
	}{
		{name: "valid", seg: "6fe501c6dd09c693e4b6b7328bf87399", ok: true},
		{name: "empty", seg: ""},
		{name: "odd", seg: "6fe501c6dd09c693e4b6b7328bf8739"},
		{name: "short", seg: "6fe501c6dd09c693"},
		{name: "uppercase", seg: "6FE501C6DD09C693E4B6B7328BF87399"},
		{name: "non-hex", seg: "6fe501c6dd09c693e4b6b7328bf8739z"},
		{name: "sha256-width", seg: strings.Repeat("ab", 32)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSegment(tc.seg, MD5)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
