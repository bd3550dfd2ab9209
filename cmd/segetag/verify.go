package main

import (
	"context"
	"fmt"

	"github.com/kk-code-lab/segetag/internal/digest"
	"github.com/kk-code-lab/segetag/internal/remote"
	"github.com/kk-code-lab/segetag/internal/storage/manifest"
)

type verifyReport struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Remote string `json:"remote"`
	Local  string `json:"local"`
	Parts  int    `json:"parts"`
	Match  bool   `json:"match"`
	Reason string `json:"reason,omitempty"`
}

// newObjectHeader is replaced in tests.
var newObjectHeader = func(ctx context.Context, cfg *cliConfig) (remote.ObjectHeader, error) {
	client, err := remote.NewS3Client(ctx, cfg.s3Config())
	if err != nil {
		return nil, err
	}
	return client, nil
}

func runVerify(ctx context.Context, cfg *cliConfig) error {
	if cfg.bucket == "" || cfg.key == "" {
		return ErrBucketKeyRequired
	}
	opts, segs, err := localSegments(cfg)
	if err != nil {
		return err
	}
	header, err := newObjectHeader(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := remote.Verify(ctx, header, cfg.bucket, cfg.key, segs, opts)
	if err != nil {
		return err
	}
	cfg.logger.Printf("verify bucket=%s key=%s remote=%s local=%s match=%v", cfg.bucket, cfg.key, res.Remote, res.Local, res.Match)
	if cfg.jsonOut {
		report := verifyReport{
			Bucket: cfg.bucket,
			Key:    cfg.key,
			Remote: res.Remote,
			Local:  res.Local,
			Parts:  res.Parts,
			Match:  res.Match,
			Reason: res.Reason,
		}
		if err := writeJSON(cfg.stdout, report); err != nil {
			return err
		}
	} else if res.Match {
		cfg.printf("ok %s\n", res.Remote)
	}
	if !res.Match {
		return mismatchError(res.Err().Error(), cfg.jsonOut)
	}
	return nil
}

// localSegments gathers digests from -manifest, -file or positional args.
// With -file the whole-file digest is included for plain ETags.
func localSegments(cfg *cliConfig) (remote.VerifyOptions, []string, error) {
	var opts remote.VerifyOptions
	if cfg.encodingSet {
		enc, err := digest.ParseEncoding(cfg.encoding)
		if err != nil {
			return opts, nil, usageError(err.Error())
		}
		opts.Encoding = &enc
	}
	switch {
	case cfg.manifest != "":
		m, err := manifest.ReadFile(cfg.manifest)
		if err != nil {
			return opts, nil, err
		}
		opts.Algorithm = m.Algorithm
		return opts, m.Digests(), nil
	case cfg.file != "":
		copts, err := cfg.composeOptions()
		if err != nil {
			return opts, nil, err
		}
		m, _, _, err := splitFile(cfg, copts)
		if err != nil {
			return opts, nil, err
		}
		whole, _, err := digest.ComputeDigestFile(cfg.file, m.Algorithm)
		if err != nil {
			return opts, nil, err
		}
		opts.Algorithm = m.Algorithm
		opts.Whole = whole
		return opts, m.Digests(), nil
	case len(cfg.args) > 0:
		alg, err := cfg.alg()
		if err != nil {
			return opts, nil, err
		}
		opts.Algorithm = alg
		return opts, cfg.args, nil
	default:
		return opts, nil, ErrSegmentsRequired
	}
}

func runPresign(ctx context.Context, cfg *cliConfig) error {
	if cfg.bucket == "" || cfg.key == "" {
		return ErrBucketKeyRequired
	}
	if cfg.expiry <= 0 {
		return usageError(fmt.Sprintf("invalid expiry %s", cfg.expiry))
	}
	client, err := remote.NewS3Client(ctx, cfg.s3Config())
	if err != nil {
		return err
	}
	url, err := client.PresignGet(ctx, cfg.bucket, cfg.key, cfg.expiry)
	if err != nil {
		return err
	}
	if cfg.jsonOut {
		return writeJSON(cfg.stdout, map[string]string{"bucket": cfg.bucket, "key": cfg.key, "url": url})
	}
	cfg.printf("%s\n", url)
	return nil
}
