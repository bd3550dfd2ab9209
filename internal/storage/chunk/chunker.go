package chunk

import (
	"io"
	"os"

	"github.com/kk-code-lab/segetag/internal/digest"
)

// DefaultSize is the default segment size (5 MiB, the S3 minimum part size).
const DefaultSize = 5 << 20

// Chunk is a unit produced by the chunker.
type Chunk struct {
	Index  int
	Offset int64
	Digest string
	Data   []byte
}

// Span returns the byte range covered by the chunk.
func (c Chunk) Span() Span {
	return Span{Offset: c.Offset, Len: int64(len(c.Data))}
}

// Splitter streams chunks to a callback.
type Splitter interface {
	Split(r io.Reader, fn func(Chunk) error) error
}

// FixedSplitter splits streams into fixed-size chunks.
type FixedSplitter struct {
	Size      int
	Algorithm digest.Algorithm
}

// NewFixedSplitter creates a fixed-size splitter hashing chunks with alg.
func NewFixedSplitter(size int, alg digest.Algorithm) *FixedSplitter {
	if size <= 0 {
		size = DefaultSize
	}
	if alg == "" {
		alg = digest.DefaultAlgorithm
	}
	return &FixedSplitter{Size: size, Algorithm: alg}
}

// Split streams chunks to the callback; the final chunk may be smaller.
// An empty stream produces no chunks.
func (s *FixedSplitter) Split(r io.Reader, fn func(Chunk) error) error {
	if !s.Algorithm.Valid() {
		_, err := s.Algorithm.New()
		return err
	}
	buf := make([]byte, s.Size)
	index := 0
	var offset int64
	for {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF {
			return nil
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return err
		}
		if n == 0 {
			return nil
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		sum, hashErr := Hash(data, s.Algorithm)
		if hashErr != nil {
			return hashErr
		}
		chunk := Chunk{
			Index:  index,
			Offset: offset,
			Digest: sum,
			Data:   data,
		}
		if err := fn(chunk); err != nil {
			return err
		}
		index++
		offset += int64(n)
		if err == io.ErrUnexpectedEOF {
			return nil
		}
	}
}

// SplitFile opens path and streams its chunks to fn.
func SplitFile(path string, s Splitter, fn func(Chunk) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return s.Split(f, fn)
}

// Digests returns the ordered digests of chunks.
func Digests(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Digest)
	}
	return out
}
