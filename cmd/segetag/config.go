package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kk-code-lab/segetag/internal/digest"
	"github.com/kk-code-lab/segetag/internal/remote"
	"github.com/kk-code-lab/segetag/internal/storage/chunk"
)

type cliConfig struct {
	mode        string
	file        string
	manifest    string
	algorithm   string
	encoding    string
	encodingSet bool
	suffix      bool
	segmentSize int64
	expect      string

	ledger   string
	uploadID string
	object   string
	part     int
	digest   string
	size     int64
	prefix   string
	state    string
	limit    int

	bucket    string
	key       string
	endpoint  string
	region    string
	accessKey string
	secretKey string
	pathStyle bool
	expiry    time.Duration

	jsonOut     bool
	verbose     bool
	showVersion bool
	modeHelp    bool

	args   []string
	stdin  io.Reader
	stdout io.Writer
	logger *log.Logger
}

func parseFlags(args []string, stdin io.Reader, stdout, stderr io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{stdin: stdin, stdout: stdout}
	fs := flag.NewFlagSet("segetag", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.mode, "mode", "compose", "Mode: digest|compose|split|upload-create|upload-part|upload-parts|upload-list|upload-complete|upload-abort|verify|presign")
	fs.StringVar(&cfg.file, "file", "", "Input file (\"-\" or empty reads stdin in digest mode)")
	fs.StringVar(&cfg.manifest, "manifest", "", "Segment manifest path (written by split, read by compose/verify)")
	fs.StringVar(&cfg.algorithm, "algorithm", string(digest.DefaultAlgorithm), "Hash algorithm: md5|sha1|sha256|blake3")
	fs.StringVar(&cfg.encoding, "encoding", "hex", "Composite encoding: hex|binary")
	fs.BoolVar(&cfg.suffix, "suffix", false, "Append -<parts> to the composite checksum")
	fs.Int64Var(&cfg.segmentSize, "segment-size", chunk.DefaultSize, "Segment size in bytes for split/verify -file")
	fs.StringVar(&cfg.expect, "expect", "", "Expected checksum; mismatch exits with status 3")
	fs.StringVar(&cfg.ledger, "ledger", "segetag.db", "Upload ledger database path")
	fs.StringVar(&cfg.uploadID, "upload-id", "", "Upload session id")
	fs.StringVar(&cfg.object, "object", "", "Object name for upload-create")
	fs.IntVar(&cfg.part, "part", 0, "Part number for upload-part")
	fs.StringVar(&cfg.digest, "digest", "", "Part digest for upload-part")
	fs.Int64Var(&cfg.size, "size", 0, "Part size in bytes for upload-part")
	fs.StringVar(&cfg.prefix, "prefix", "", "Object prefix for upload-list")
	fs.StringVar(&cfg.state, "state", "", "Upload state filter for upload-list (OPEN|COMPLETED)")
	fs.IntVar(&cfg.limit, "limit", 1000, "Max uploads for upload-list")
	fs.StringVar(&cfg.bucket, "bucket", "", "Remote bucket")
	fs.StringVar(&cfg.key, "key", "", "Remote object key")
	fs.StringVar(&cfg.endpoint, "endpoint", "", "S3 endpoint URL (empty uses AWS)")
	fs.StringVar(&cfg.region, "region", "us-east-1", "S3 region")
	fs.StringVar(&cfg.accessKey, "access-key", "", "S3 access key (empty uses the default credential chain)")
	fs.StringVar(&cfg.secretKey, "secret-key", "", "S3 secret key")
	fs.BoolVar(&cfg.pathStyle, "path-style", false, "Use path-style S3 addressing (MinIO)")
	fs.DurationVar(&cfg.expiry, "expiry", 24*time.Hour, "Presigned URL lifetime")
	fs.BoolVar(&cfg.jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Log progress to stderr")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.modeHelp, "mode-help", false, "Show help for the selected mode")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, &exitCodeError{code: exitOK, msg: err.Error(), quiet: true}
		}
		return nil, &exitCodeError{code: exitUsage, msg: err.Error(), quiet: true}
	}
	cfg.args = fs.Args()
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "encoding" {
			cfg.encodingSet = true
		}
	})
	logOut := io.Discard
	if cfg.verbose {
		logOut = stderr
	}
	cfg.logger = log.New(logOut, "", log.LstdFlags)
	return cfg, nil
}

func (c *cliConfig) alg() (digest.Algorithm, error) {
	return digest.ParseAlgorithm(c.algorithm)
}

func (c *cliConfig) composeOptions() (digest.Options, error) {
	alg, err := c.alg()
	if err != nil {
		return digest.Options{}, err
	}
	opts, err := c.encodingOptions()
	if err != nil {
		return digest.Options{}, err
	}
	opts.Algorithm = alg
	return opts, nil
}

// encodingOptions parses -encoding and -suffix only.
func (c *cliConfig) encodingOptions() (digest.Options, error) {
	enc, err := digest.ParseEncoding(c.encoding)
	if err != nil {
		return digest.Options{}, usageError(err.Error())
	}
	return digest.Options{Encoding: enc, Suffix: c.suffix}, nil
}

func (c *cliConfig) s3Config() remote.S3Config {
	return remote.S3Config{
		Endpoint:        c.endpoint,
		Region:          c.region,
		AccessKeyID:     c.accessKey,
		SecretAccessKey: c.secretKey,
		UsePathStyle:    c.pathStyle,
	}
}

func (c *cliConfig) input() (io.ReadCloser, error) {
	if c.file == "" || c.file == "-" {
		return io.NopCloser(c.stdin), nil
	}
	return os.Open(c.file)
}

func (c *cliConfig) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stdout, format, args...)
}
