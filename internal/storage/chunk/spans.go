package chunk

// Span describes a byte range within an object.
type Span struct {
	Offset int64
	Len    int64
}

// End returns the offset one past the span.
func (s Span) End() int64 {
	return s.Offset + s.Len
}
