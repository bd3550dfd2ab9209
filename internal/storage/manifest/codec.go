package manifest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/kk-code-lab/segetag/internal/digest"
)

const (
	magic       = 0x5347544d // "SGTM"
	versionV1   = 1
	headerLen   = 4 + 4
	checksumLen = 32
)

// Codec serializes and deserializes manifests.
type Codec interface {
	Encode(w io.Writer, m *Manifest) error
	Decode(r io.Reader) (*Manifest, error)
}

// BinaryCodec implements a compact binary manifest format.
type BinaryCodec struct{}

// Encode writes a manifest with a header and checksum.
func (c *BinaryCodec) Encode(w io.Writer, m *Manifest) error {
	if m == nil {
		return errors.New("manifest: nil manifest")
	}
	if err := m.Validate(); err != nil {
		return err
	}
	buf := make([]byte, 0, 256)
	buf = appendU32(buf, magic)
	buf = appendU32(buf, versionV1)
	buf = appendString(buf, m.Object)
	buf = appendString(buf, string(m.Algorithm))
	buf = appendU64(buf, uint64(m.SegmentSize))
	buf = appendU64(buf, uint64(m.Size))
	buf = appendU32(buf, uint32(len(m.Segments)))
	for _, seg := range m.Segments {
		buf = appendU32(buf, uint32(seg.Index))
		buf = appendU64(buf, uint64(seg.Offset))
		buf = appendU64(buf, uint64(seg.Len))
		buf = append(buf, seg.Digest...)
	}
	checksum := blake3.Sum256(buf[headerLen:])
	if _, err := w.Write(buf); err != nil {
		return err
	}
	_, err := w.Write(checksum[:])
	return err
}

// Decode reads a manifest, validates header and checksum, and returns the manifest.
func (c *BinaryCodec) Decode(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen+checksumLen {
		return nil, errors.New("manifest: truncated")
	}
	body := data[:len(data)-checksumLen]
	checksum := data[len(data)-checksumLen:]
	sum := blake3.Sum256(body[headerLen:])
	if !bytes.Equal(sum[:], checksum) {
		return nil, errors.New("manifest: checksum mismatch")
	}
	if binary.LittleEndian.Uint32(body[0:4]) != magic {
		return nil, errors.New("manifest: bad magic")
	}
	if binary.LittleEndian.Uint32(body[4:8]) != versionV1 {
		return nil, errors.New("manifest: unsupported version")
	}
	offset := headerLen
	object, n, err := readString(body[offset:])
	if err != nil {
		return nil, err
	}
	offset += n
	algName, n, err := readString(body[offset:])
	if err != nil {
		return nil, err
	}
	offset += n
	alg := digest.Algorithm(algName)
	width := alg.Size()
	if width == 0 {
		return nil, errors.New("manifest: unsupported algorithm")
	}
	if offset+8+8+4 > len(body) {
		return nil, errors.New("manifest: truncated body")
	}
	segmentSize := int64(binary.LittleEndian.Uint64(body[offset:]))
	offset += 8
	size := int64(binary.LittleEndian.Uint64(body[offset:]))
	offset += 8
	count := int(binary.LittleEndian.Uint32(body[offset:]))
	offset += 4
	entryLen := 4 + 8 + 8 + width
	if count < 0 || count > (len(body)-offset)/entryLen {
		return nil, errors.New("manifest: truncated segment")
	}
	segments := make([]SegmentRef, 0, count)
	for i := 0; i < count; i++ {
		index := int(binary.LittleEndian.Uint32(body[offset:]))
		offset += 4
		off := int64(binary.LittleEndian.Uint64(body[offset:]))
		offset += 8
		length := int64(binary.LittleEndian.Uint64(body[offset:]))
		offset += 8
		sum := make([]byte, width)
		copy(sum, body[offset:offset+width])
		offset += width
		segments = append(segments, SegmentRef{
			Index:  index,
			Offset: off,
			Len:    length,
			Digest: sum,
		})
	}
	if offset != len(body) {
		return nil, errors.New("manifest: trailing bytes")
	}
	m := &Manifest{
		Object:      object,
		Algorithm:   alg,
		SegmentSize: segmentSize,
		Size:        size,
		Segments:    segments,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteFile encodes m to path, replacing any existing file atomically.
func WriteFile(path string, m *Manifest) error {
	var buf bytes.Buffer
	codec := &BinaryCodec{}
	if err := codec.Encode(&buf, m); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadFile decodes the manifest stored at path.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	codec := &BinaryCodec{}
	return codec.Decode(f)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, v string) []byte {
	if len(v) > int(^uint32(0)) {
		panic("manifest: string too large")
	}
	buf = appendU32(buf, uint32(len(v)))
	return append(buf, v...)
}

func readString(data []byte) (string, int, error) {
	if len(data) < 4 {
		return "", 0, errors.New("manifest: truncated string length")
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	if n < 0 || len(data)-4 < n {
		return "", 0, errors.New("manifest: truncated string")
	}
	return string(data[4 : 4+n]), 4 + n, nil
}
