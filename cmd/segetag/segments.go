package main

import (
	"fmt"
	"path/filepath"

	"github.com/kk-code-lab/segetag/internal/digest"
	"github.com/kk-code-lab/segetag/internal/storage/chunk"
	"github.com/kk-code-lab/segetag/internal/storage/manifest"
)

type digestReport struct {
	File      string `json:"file"`
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

type composeReport struct {
	Algorithm string   `json:"algorithm"`
	Encoding  string   `json:"encoding"`
	Parts     int      `json:"parts"`
	Checksum  string   `json:"checksum"`
	Segments  []string `json:"segments"`
	Match     *bool    `json:"match,omitempty"`
}

type segmentLine struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	Len    int64  `json:"len"`
	Digest string `json:"digest"`
}

type splitReport struct {
	File        string        `json:"file"`
	Algorithm   string        `json:"algorithm"`
	Encoding    string        `json:"encoding"`
	SegmentSize int64         `json:"segment_size"`
	Size        int64         `json:"size"`
	Checksum    string        `json:"checksum"`
	Manifest    string        `json:"manifest,omitempty"`
	Segments    []segmentLine `json:"segments"`
	Match       *bool         `json:"match,omitempty"`
}

func runDigest(cfg *cliConfig) error {
	alg, err := cfg.alg()
	if err != nil {
		return err
	}
	in, err := cfg.input()
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	sum, size, err := digest.ComputeDigestReader(in, alg)
	if err != nil {
		return err
	}
	name := cfg.file
	if name == "" {
		name = "-"
	}
	cfg.logger.Printf("digest file=%s alg=%s size=%d", name, alg, size)
	if cfg.jsonOut {
		if err := writeJSON(cfg.stdout, digestReport{File: name, Algorithm: alg.String(), Digest: sum, Size: size}); err != nil {
			return err
		}
	} else {
		cfg.printf("%s  %s\n", sum, name)
	}
	return checkExpected(cfg, sum)
}

func runCompose(cfg *cliConfig) error {
	opts, err := cfg.composeOptions()
	if err != nil {
		return err
	}
	segs := cfg.args
	if cfg.manifest != "" {
		if len(segs) > 0 {
			return usageError("use either -manifest or digest arguments")
		}
		m, err := manifest.ReadFile(cfg.manifest)
		if err != nil {
			return err
		}
		opts.Algorithm = m.Algorithm
		segs = m.Digests()
	}
	if len(segs) == 0 {
		return ErrSegmentsRequired
	}
	composite, err := digest.Compose(segs, opts)
	if err != nil {
		return err
	}
	checksum := composite.String()
	cfg.logger.Printf("compose alg=%s enc=%s parts=%d checksum=%s", opts.Algorithm, opts.Encoding, composite.Parts, checksum)
	if cfg.jsonOut {
		report := composeReport{
			Algorithm: opts.Algorithm.String(),
			Encoding:  opts.Encoding.String(),
			Parts:     composite.Parts,
			Checksum:  checksum,
			Segments:  segs,
			Match:     expectedMatch(cfg, checksum),
		}
		if err := writeJSON(cfg.stdout, report); err != nil {
			return err
		}
	} else {
		cfg.printf("%s\n", checksum)
	}
	return checkExpected(cfg, checksum)
}

func runSplit(cfg *cliConfig) error {
	if cfg.file == "" || cfg.file == "-" {
		return ErrFileRequired
	}
	opts, err := cfg.composeOptions()
	if err != nil {
		return err
	}
	m, composite, lines, err := splitFile(cfg, opts)
	if err != nil {
		return err
	}
	if cfg.manifest != "" {
		if err := manifest.WriteFile(cfg.manifest, m); err != nil {
			return err
		}
		cfg.logger.Printf("split manifest=%s segments=%d", cfg.manifest, len(m.Segments))
	}
	checksum := composite.String()
	if cfg.jsonOut {
		report := splitReport{
			File:        cfg.file,
			Algorithm:   opts.Algorithm.String(),
			Encoding:    opts.Encoding.String(),
			SegmentSize: m.SegmentSize,
			Size:        m.Size,
			Checksum:    checksum,
			Manifest:    cfg.manifest,
			Segments:    lines,
			Match:       expectedMatch(cfg, checksum),
		}
		if err := writeJSON(cfg.stdout, report); err != nil {
			return err
		}
	} else {
		for _, line := range lines {
			cfg.printf("%d %d %d %s\n", line.Index, line.Offset, line.Len, line.Digest)
		}
		cfg.printf("%s  %s\n", checksum, cfg.file)
	}
	return checkExpected(cfg, checksum)
}

// splitFile streams cfg.file through the splitter without retaining data.
func splitFile(cfg *cliConfig, opts digest.Options) (*manifest.Manifest, *digest.Composite, []segmentLine, error) {
	if cfg.segmentSize <= 0 || cfg.segmentSize > 1<<31-1 {
		return nil, nil, nil, usageError(fmt.Sprintf("invalid segment size %d", cfg.segmentSize))
	}
	composer, err := digest.NewComposer(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	m := &manifest.Manifest{
		Object:      filepath.Base(cfg.file),
		Algorithm:   opts.Algorithm,
		SegmentSize: cfg.segmentSize,
	}
	var lines []segmentLine
	splitter := chunk.NewFixedSplitter(int(cfg.segmentSize), opts.Algorithm)
	err = chunk.SplitFile(cfg.file, splitter, func(c chunk.Chunk) error {
		span := c.Span()
		if err := m.Append(span, c.Digest); err != nil {
			return err
		}
		if err := composer.Add(c.Digest); err != nil {
			return err
		}
		cfg.logger.Printf("segment index=%d offset=%d len=%d digest=%s", c.Index, span.Offset, span.Len, c.Digest)
		lines = append(lines, segmentLine{Index: c.Index, Offset: span.Offset, Len: span.Len, Digest: c.Digest})
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, nil, fmt.Errorf("%s: %w", cfg.file, &digest.InputError{Index: -1, Reason: "empty file has no segments"})
	}
	composite, err := composer.Sum()
	if err != nil {
		return nil, nil, nil, err
	}
	return m, composite, lines, nil
}

func expectedMatch(cfg *cliConfig, got string) *bool {
	if cfg.expect == "" {
		return nil
	}
	match := digest.Normalize(cfg.expect) == got
	return &match
}

func checkExpected(cfg *cliConfig, got string) error {
	match := expectedMatch(cfg, got)
	if match == nil || *match {
		return nil
	}
	return mismatchError(fmt.Sprintf("checksum mismatch: got %s want %s", got, digest.Normalize(cfg.expect)), cfg.jsonOut)
}
