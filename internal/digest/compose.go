package digest

import (
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"
)

// Encoding selects how segment digests are joined before the outer hash.
type Encoding int

const (
	// EncodingHex hashes the ASCII bytes of the concatenated hex digests.
	EncodingHex Encoding = iota
	// EncodingBinary hashes the concatenated raw digest bytes, as AWS S3 does.
	EncodingBinary
)

// ParseEncoding resolves "hex" or "binary".
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hex":
		return EncodingHex, nil
	case "binary", "raw":
		return EncodingBinary, nil
	default:
		return 0, fmt.Errorf("%w: unknown encoding %q", ErrInvalidInput, name)
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingHex:
		return "hex"
	case EncodingBinary:
		return "binary"
	default:
		return "encoding(" + strconv.Itoa(int(e)) + ")"
	}
}

// Options controls composition.
type Options struct {
	Algorithm Algorithm
	Encoding  Encoding
	// Suffix appends "-<parts>" to the checksum string.
	Suffix bool
}

func (o Options) algorithm() Algorithm {
	if o.Algorithm == "" {
		return DefaultAlgorithm
	}
	return o.Algorithm
}

// Composite is the result of folding segment digests.
type Composite struct {
	Digest []byte
	Hex    string
	Parts  int
	Suffix bool
}

// String renders the checksum, suffixed with the part count when requested.
func (c *Composite) String() string {
	if c == nil {
		return ""
	}
	if c.Suffix {
		return c.Hex + "-" + strconv.Itoa(c.Parts)
	}
	return c.Hex
}

// Composer folds segment digests incrementally, in upload order.
type Composer struct {
	opts  Options
	alg   Algorithm
	h     hash.Hash
	parts int
}

// NewComposer returns a composer for opts.
func NewComposer(opts Options) (*Composer, error) {
	alg := opts.algorithm()
	h, err := alg.New()
	if err != nil {
		return nil, err
	}
	if opts.Encoding != EncodingHex && opts.Encoding != EncodingBinary {
		return nil, &InputError{Index: -1, Reason: "unknown encoding " + opts.Encoding.String()}
	}
	opts.Algorithm = alg
	return &Composer{opts: opts, alg: alg, h: h}, nil
}

// Add appends the next segment digest. A rejected segment leaves the
// composer unchanged.
func (c *Composer) Add(seg string) error {
	if reason := segmentProblem(seg, c.alg); reason != "" {
		return &InputError{Index: c.parts, Segment: seg, Reason: reason}
	}
	switch c.opts.Encoding {
	case EncodingBinary:
		raw, err := hex.DecodeString(seg)
		if err != nil {
			return &InputError{Index: c.parts, Segment: seg, Reason: err.Error()}
		}
		_, _ = c.h.Write(raw)
	default:
		_, _ = c.h.Write([]byte(seg))
	}
	c.parts++
	return nil
}

// Parts returns the number of segments added so far.
func (c *Composer) Parts() int {
	return c.parts
}

// Sum returns the composite of the segments added so far.
func (c *Composer) Sum() (*Composite, error) {
	if c.parts == 0 {
		return nil, &InputError{Index: -1, Reason: "no segments"}
	}
	sum := c.h.Sum(nil)
	return &Composite{
		Digest: sum,
		Hex:    hex.EncodeToString(sum),
		Parts:  c.parts,
		Suffix: c.opts.Suffix,
	}, nil
}

// Compose folds an ordered, non-empty list of segment digests.
func Compose(segments []string, opts Options) (*Composite, error) {
	c, err := NewComposer(opts)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, &InputError{Index: -1, Reason: "no segments"}
	}
	for _, seg := range segments {
		if err := c.Add(seg); err != nil {
			return nil, err
		}
	}
	return c.Sum()
}

// ComputeSegmentedChecksum returns the composite checksum string for segments.
func ComputeSegmentedChecksum(segments []string, opts Options) (string, error) {
	composite, err := Compose(segments, opts)
	if err != nil {
		return "", err
	}
	return composite.String(), nil
}

// Normalize strips surrounding whitespace and double quotes from an ETag.
func Normalize(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "\"")
	etag = strings.TrimSuffix(etag, "\"")
	return etag
}

// ParseChecksum splits "<hex>[-<parts>]" into its hex digest and part count.
// parts is 0 when the checksum carries no suffix.
func ParseChecksum(s string) (string, int, error) {
	s = Normalize(s)
	hexPart, count, found := strings.Cut(s, "-")
	if hexPart == "" || len(hexPart)%2 != 0 || !isLowerHex(hexPart) {
		return "", 0, &InputError{Index: -1, Segment: s, Reason: "malformed checksum"}
	}
	if !found {
		return hexPart, 0, nil
	}
	parts, err := strconv.Atoi(count)
	if err != nil || parts <= 0 || strconv.Itoa(parts) != count {
		return "", 0, &InputError{Index: -1, Segment: s, Reason: "malformed part count"}
	}
	return hexPart, parts, nil
}
