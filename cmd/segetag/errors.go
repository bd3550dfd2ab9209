package main

import "errors"

var (
	ErrBucketKeyRequired = errors.New("bucket and key required")
	ErrDigestRequired    = errors.New("digest required")
	ErrFileRequired      = errors.New("file required")
	ErrLedgerRequired    = errors.New("ledger path required")
	ErrObjectRequired    = errors.New("object required")
	ErrPartRequired      = errors.New("part number required")
	ErrSegmentsRequired  = errors.New("segment digests required (args, -manifest or -file)")
	ErrUploadIDRequired  = errors.New("upload-id required")
)
