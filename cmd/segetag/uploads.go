package main

import (
	"context"
	"fmt"

	"github.com/kk-code-lab/segetag/internal/meta"
)

type completeReport struct {
	UploadID string `json:"upload_id"`
	Object   string `json:"object"`
	Parts    int    `json:"parts"`
	Checksum string `json:"checksum"`
	Match    *bool  `json:"match,omitempty"`
}

func runUpload(ctx context.Context, cfg *cliConfig) error {
	if cfg.ledger == "" {
		return ErrLedgerRequired
	}
	store, err := meta.Open(cfg.ledger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch cfg.mode {
	case "upload-create":
		if cfg.object == "" {
			return ErrObjectRequired
		}
		alg, err := cfg.alg()
		if err != nil {
			return err
		}
		up, err := store.CreateUpload(ctx, cfg.object, alg)
		if err != nil {
			return err
		}
		cfg.logger.Printf("upload-create upload_id=%s object=%s alg=%s", up.UploadID, up.Object, up.Algorithm)
		if cfg.jsonOut {
			return writeJSON(cfg.stdout, up)
		}
		cfg.printf("%s\n", up.UploadID)
		return nil
	case "upload-part":
		if cfg.uploadID == "" {
			return ErrUploadIDRequired
		}
		if cfg.part <= 0 {
			return ErrPartRequired
		}
		if cfg.digest == "" {
			return ErrDigestRequired
		}
		if err := store.PutPart(ctx, cfg.uploadID, cfg.part, cfg.digest, cfg.size); err != nil {
			return err
		}
		cfg.logger.Printf("upload-part upload_id=%s part=%d digest=%s size=%d", cfg.uploadID, cfg.part, cfg.digest, cfg.size)
		if cfg.jsonOut {
			return writeJSON(cfg.stdout, map[string]string{"status": "ok"})
		}
		cfg.printf("ok\n")
		return nil
	case "upload-parts":
		if cfg.uploadID == "" {
			return ErrUploadIDRequired
		}
		parts, err := store.ListParts(ctx, cfg.uploadID)
		if err != nil {
			return err
		}
		if cfg.jsonOut {
			return writeJSON(cfg.stdout, parts)
		}
		for _, part := range parts {
			cfg.printf("%d %s %d\n", part.PartNumber, part.Digest, part.Size)
		}
		return nil
	case "upload-list":
		uploads, err := store.ListUploads(ctx, cfg.prefix, cfg.state, cfg.limit)
		if err != nil {
			return err
		}
		if cfg.jsonOut {
			return writeJSON(cfg.stdout, uploads)
		}
		for _, up := range uploads {
			cfg.printf("%s %s %s %s %s\n", up.UploadID, up.State, up.Algorithm, up.Object, up.Checksum)
		}
		return nil
	case "upload-complete":
		if cfg.uploadID == "" {
			return ErrUploadIDRequired
		}
		opts, err := cfg.encodingOptions()
		if err != nil {
			return err
		}
		up, err := store.GetUpload(ctx, cfg.uploadID)
		if err != nil {
			return err
		}
		composite, err := store.CompleteUpload(ctx, cfg.uploadID, opts)
		if err != nil {
			return err
		}
		if err := store.Flush(); err != nil {
			return err
		}
		checksum := composite.String()
		cfg.logger.Printf("upload-complete upload_id=%s parts=%d checksum=%s", cfg.uploadID, composite.Parts, checksum)
		if cfg.jsonOut {
			report := completeReport{
				UploadID: cfg.uploadID,
				Object:   up.Object,
				Parts:    composite.Parts,
				Checksum: checksum,
				Match:    expectedMatch(cfg, checksum),
			}
			if err := writeJSON(cfg.stdout, report); err != nil {
				return err
			}
		} else {
			cfg.printf("%s\n", checksum)
		}
		return checkExpected(cfg, checksum)
	case "upload-abort":
		if cfg.uploadID == "" {
			return ErrUploadIDRequired
		}
		if err := store.AbortUpload(ctx, cfg.uploadID); err != nil {
			return err
		}
		if err := store.Flush(); err != nil {
			return err
		}
		cfg.logger.Printf("upload-abort upload_id=%s", cfg.uploadID)
		if cfg.jsonOut {
			return writeJSON(cfg.stdout, map[string]string{"status": "ok"})
		}
		cfg.printf("ok\n")
		return nil
	default:
		return usageError(fmt.Sprintf("unknown mode %q", cfg.mode))
	}
}
