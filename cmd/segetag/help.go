package main

import (
	"fmt"
	"io"
)

func printModeHelp(w io.Writer, mode string) {
	switch mode {
	case "digest":
		fmt.Fprintln(w, "Mode digest: prints the hex digest of -file (or stdin).")
		fmt.Fprintln(w, "Flags: -file, -algorithm, -expect, -json")
	case "compose":
		fmt.Fprintln(w, "Mode compose: folds segment digests (args or -manifest) into one checksum.")
		fmt.Fprintln(w, "Flags: -algorithm, -encoding hex|binary, -suffix, -manifest, -expect, -json")
	case "split":
		fmt.Fprintln(w, "Mode split: splits -file into segments, prints their digests and the composite.")
		fmt.Fprintln(w, "Flags: -file, -segment-size, -algorithm, -encoding, -suffix, -manifest (output), -expect, -json")
	case "upload-create":
		fmt.Fprintln(w, "Mode upload-create: opens an upload session in the ledger and prints its id.")
		fmt.Fprintln(w, "Flags: -ledger, -object, -algorithm")
	case "upload-part":
		fmt.Fprintln(w, "Mode upload-part: records (or replaces) a part digest.")
		fmt.Fprintln(w, "Flags: -ledger, -upload-id, -part, -digest, -size")
	case "upload-parts":
		fmt.Fprintln(w, "Mode upload-parts: lists recorded parts in part order.")
		fmt.Fprintln(w, "Flags: -ledger, -upload-id, -json")
	case "upload-list":
		fmt.Fprintln(w, "Mode upload-list: lists upload sessions.")
		fmt.Fprintln(w, "Flags: -ledger, -prefix, -state, -limit, -json")
	case "upload-complete":
		fmt.Fprintln(w, "Mode upload-complete: composes recorded parts (1..N, no gaps) and closes the session.")
		fmt.Fprintln(w, "Flags: -ledger, -upload-id, -encoding, -suffix, -expect, -json")
	case "upload-abort":
		fmt.Fprintln(w, "Mode upload-abort: deletes an open session and its parts.")
		fmt.Fprintln(w, "Flags: -ledger, -upload-id, -json")
	case "verify":
		fmt.Fprintln(w, "Mode verify: compares an S3 object's ETag with local segments (-manifest, -file or args).")
		fmt.Fprintln(w, "Flags: -bucket, -key, -endpoint, -region, -access-key, -secret-key, -path-style, -segment-size, -encoding, -json")
	case "presign":
		fmt.Fprintln(w, "Mode presign: prints a presigned GET URL for -bucket/-key.")
		fmt.Fprintln(w, "Flags: -bucket, -key, -expiry, -endpoint, -region, -access-key, -secret-key, -path-style")
	default:
		fmt.Fprintf(w, "Unknown mode %q\n", mode)
	}
}
