package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kk-code-lab/segetag/internal/app"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stdin, stdout, stderr)
	if err != nil {
		return exitCode(err)
	}
	if cfg.showVersion {
		cfg.printf("segetag %s (commit %s)\n", app.Version, app.BuildCommit)
		return exitOK
	}
	if cfg.modeHelp {
		printModeHelp(stdout, cfg.mode)
		return exitOK
	}
	start := time.Now()
	err = dispatch(ctx, cfg)
	cfg.logger.Printf("mode=%s dur_ms=%d err=%v", cfg.mode, time.Since(start).Milliseconds(), err)
	if err != nil {
		var coded *exitCodeError
		if !errors.As(err, &coded) || !coded.Quiet() {
			fmt.Fprintf(stderr, "%s error: %v\n", cfg.mode, err)
		}
		return exitCode(err)
	}
	return exitOK
}

func dispatch(ctx context.Context, cfg *cliConfig) error {
	switch cfg.mode {
	case "digest":
		return runDigest(cfg)
	case "compose":
		return runCompose(cfg)
	case "split":
		return runSplit(cfg)
	case "upload-create", "upload-part", "upload-parts", "upload-list", "upload-complete", "upload-abort":
		return runUpload(ctx, cfg)
	case "verify":
		return runVerify(ctx, cfg)
	case "presign":
		return runPresign(ctx, cfg)
	default:
		return usageError(fmt.Sprintf("unknown mode %q", cfg.mode))
	}
}
