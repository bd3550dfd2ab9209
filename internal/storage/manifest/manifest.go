package manifest

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kk-code-lab/segetag/internal/digest"
	"github.com/kk-code-lab/segetag/internal/storage/chunk"
)

// SegmentRef records one segment of an object and its raw digest.
type SegmentRef struct {
	Index  int
	Offset int64
	Len    int64
	Digest []byte
}

// Manifest describes how an object was split into segments.
type Manifest struct {
	Object      string
	Algorithm   digest.Algorithm
	SegmentSize int64
	Size        int64
	Segments    []SegmentRef
}

// FromChunks builds a manifest from chunks in split order.
func FromChunks(object string, alg digest.Algorithm, segmentSize int64, chunks []chunk.Chunk) (*Manifest, error) {
	m := &Manifest{Object: object, Algorithm: alg, SegmentSize: segmentSize}
	for _, c := range chunks {
		if err := m.Append(c.Span(), c.Digest); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Append adds the next segment with its hex digest.
func (m *Manifest) Append(span chunk.Span, hexDigest string) error {
	if err := digest.ValidateSegment(hexDigest, m.Algorithm); err != nil {
		return err
	}
	if span.Offset != m.Size {
		return fmt.Errorf("manifest: segment offset %d, want %d", span.Offset, m.Size)
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return err
	}
	m.Segments = append(m.Segments, SegmentRef{
		Index:  len(m.Segments),
		Offset: span.Offset,
		Len:    span.Len,
		Digest: raw,
	})
	m.Size = span.End()
	return nil
}

// Digests returns the ordered hex digests of the segments.
func (m *Manifest) Digests() []string {
	out := make([]string, 0, len(m.Segments))
	for _, seg := range m.Segments {
		out = append(out, hex.EncodeToString(seg.Digest))
	}
	return out
}

// Validate checks algorithm, digest widths and segment contiguity.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New("manifest: nil manifest")
	}
	if !m.Algorithm.Valid() {
		return fmt.Errorf("manifest: %w: %q", digest.ErrUnsupportedAlgorithm, string(m.Algorithm))
	}
	var offset int64
	for i, seg := range m.Segments {
		if seg.Index != i {
			return fmt.Errorf("manifest: segment %d has index %d", i, seg.Index)
		}
		if seg.Offset != offset {
			return fmt.Errorf("manifest: segment %d offset %d, want %d", i, seg.Offset, offset)
		}
		if seg.Len < 0 {
			return fmt.Errorf("manifest: segment %d negative length", i)
		}
		if len(seg.Digest) != m.Algorithm.Size() {
			return fmt.Errorf("manifest: segment %d digest is %d bytes, want %d", i, len(seg.Digest), m.Algorithm.Size())
		}
		offset += seg.Len
	}
	if offset != m.Size {
		return fmt.Errorf("manifest: segments cover %d bytes, size is %d", offset, m.Size)
	}
	return nil
}

// Checksum composes the manifest's segment digests.
// The algorithm in opts is ignored in favour of the manifest's.
func (m *Manifest) Checksum(opts digest.Options) (*digest.Composite, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	opts.Algorithm = m.Algorithm
	return digest.Compose(m.Digests(), opts)
}
