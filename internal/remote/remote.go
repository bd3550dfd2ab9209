// Package remote compares locally composed checksums with the ETags an
// S3-compatible service reports. The service itself is an external
// collaborator reached through the AWS SDK.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/kk-code-lab/segetag/internal/digest"
)

var (
	ErrObjectNotFound = errors.New("remote: object not found")
	ErrETagMismatch   = errors.New("remote: etag mismatch")
)

// ObjectInfo is the subset of object metadata needed for verification.
type ObjectInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
	// Parts is reported by some services for multipart objects; 0 if unknown.
	Parts int
}

// ObjectHeader fetches object metadata without downloading content.
type ObjectHeader interface {
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

// Result describes one comparison.
type Result struct {
	Remote string
	Local  string
	Parts  int
	Match  bool
	Reason string
}

// Err returns ErrETagMismatch when the result did not match.
func (r *Result) Err() error {
	if r == nil || r.Match {
		return nil
	}
	return fmt.Errorf("%w: remote=%s local=%s (%s)", ErrETagMismatch, r.Remote, r.Local, r.Reason)
}

// VerifyOptions controls how local digests are compared with an ETag.
type VerifyOptions struct {
	Algorithm digest.Algorithm
	// Encoding forces the composite encoding. When nil, multipart ETags
	// are checked against the binary composite, as S3 services compute it.
	Encoding *digest.Encoding
	// Whole is the digest of the complete object. Plain ETags of objects
	// uploaded in a single PUT are compared against it.
	Whole string
}

func (o VerifyOptions) algorithm() digest.Algorithm {
	if o.Algorithm == "" {
		return digest.DefaultAlgorithm
	}
	return o.Algorithm
}

func (o VerifyOptions) composeOptions() digest.Options {
	enc := digest.EncodingBinary
	if o.Encoding != nil {
		enc = *o.Encoding
	}
	return digest.Options{Algorithm: o.algorithm(), Encoding: enc, Suffix: true}
}

// MatchETag compares a service ETag against segment digests.
// Multipart ETags ("<hex>-<N>") are checked against the composite with
// suffix. Plain ETags are checked against opts.Whole, or against the only
// segment when no whole-object digest is given.
func MatchETag(etag string, segments []string, opts VerifyOptions) (*Result, error) {
	remoteHex, parts, err := digest.ParseChecksum(etag)
	if err != nil {
		return nil, err
	}
	res := &Result{Remote: digest.Normalize(etag), Parts: len(segments)}
	if parts == 0 {
		return matchPlain(res, remoteHex, segments, opts)
	}
	composite, err := digest.Compose(segments, opts.composeOptions())
	if err != nil {
		return nil, err
	}
	res.Local = composite.String()
	switch {
	case parts != len(segments):
		res.Reason = fmt.Sprintf("remote has %d parts, local has %d", parts, len(segments))
	case composite.Hex != remoteHex:
		res.Reason = "composite differs"
	default:
		res.Match = true
	}
	return res, nil
}

func matchPlain(res *Result, remoteHex string, segments []string, opts VerifyOptions) (*Result, error) {
	local := opts.Whole
	switch {
	case local != "":
	case len(segments) == 1:
		local = segments[0]
	default:
		composite, err := digest.Compose(segments, opts.composeOptions())
		if err != nil {
			return nil, err
		}
		res.Local = composite.String()
		res.Reason = "remote object is not multipart"
		return res, nil
	}
	if err := digest.ValidateSegment(local, opts.algorithm()); err != nil {
		return nil, err
	}
	res.Local = local
	res.Parts = 1
	res.Match = remoteHex == local
	if !res.Match {
		res.Reason = "digest differs"
	}
	return res, nil
}

// Verify fetches bucket/key from h and compares its ETag with segments.
func Verify(ctx context.Context, h ObjectHeader, bucket, key string, segments []string, opts VerifyOptions) (*Result, error) {
	if h == nil {
		return nil, errors.New("remote: object header required")
	}
	info, err := h.HeadObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	res, err := MatchETag(info.ETag, segments, opts)
	if err != nil {
		return nil, fmt.Errorf("remote: %s/%s: %w", bucket, key, err)
	}
	if res.Match && info.Parts > 0 && info.Parts != res.Parts {
		res.Match = false
		res.Reason = fmt.Sprintf("remote reports %d parts, local has %d", info.Parts, len(segments))
	}
	return res, nil
}
