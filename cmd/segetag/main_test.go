package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kk-code-lab/segetag/internal/remote"
)

var goldenSegments = []string{
	"6fe501c6dd09c693e4b6b7328bf87399",
	"a4fe1afc0a8a217cc67c9bdf709e6465",
	"541a58907e488d452d21f68520594094",
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "object.bin")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestComposeGolden(t *testing.T) {
	args := append([]string{"-mode", "compose"}, goldenSegments...)
	code, out, stderr := runCLI(t, "", args...)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(out) != "b99ac2bdcda5e1bdcc1693be00410cea" {
		t.Fatalf("unexpected output %q", out)
	}

	args = append([]string{"-mode", "compose", "-encoding", "binary", "-suffix", "-json"}, goldenSegments...)
	code, out, stderr = runCLI(t, "", args...)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var report composeReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if report.Checksum != "ff72b70823c0a54ba071365d39b06acc-3" || report.Parts != 3 || report.Encoding != "binary" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestComposeErrors(t *testing.T) {
	code, _, _ := runCLI(t, "", "-mode", "compose")
	if code != exitFailure {
		t.Fatalf("expected failure for no segments, got %d", code)
	}
	code, _, stderr := runCLI(t, "", "-mode", "compose", "zz")
	if code != exitFailure || !strings.Contains(stderr, "invalid") {
		t.Fatalf("expected invalid input failure, got %d %q", code, stderr)
	}
	code, _, _ = runCLI(t, "", "-mode", "compose", "-algorithm", "crc32", goldenSegments[0])
	if code != exitUsage {
		t.Fatalf("expected usage exit for unsupported algorithm, got %d", code)
	}
	code, _, _ = runCLI(t, "", "-mode", "nope")
	if code != exitUsage {
		t.Fatalf("expected usage exit for unknown mode, got %d", code)
	}
	code, _, _ = runCLI(t, "", "-no-such-flag")
	if code != exitUsage {
		t.Fatalf("expected usage exit for bad flag, got %d", code)
	}
}

func TestComposeExpect(t *testing.T) {
	args := append([]string{"-mode", "compose", "-expect", `"b99ac2bdcda5e1bdcc1693be00410cea"`}, goldenSegments...)
	if code, _, stderr := runCLI(t, "", args...); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	args = append([]string{"-mode", "compose", "-expect", "00000000000000000000000000000000"}, goldenSegments...)
	code, _, stderr := runCLI(t, "", args...)
	if code != exitMismatch || !strings.Contains(stderr, "checksum mismatch") {
		t.Fatalf("expected mismatch exit, got %d %q", code, stderr)
	}
}

func TestDigestStdinAndFile(t *testing.T) {
	code, out, stderr := runCLI(t, "hello world", "-mode", "digest")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "5eb63bbbe01eeed093cb22bb8f5acdc3  -\n" {
		t.Fatalf("unexpected output %q", out)
	}
	path := writeTestFile(t, "hello world")
	code, out, stderr = runCLI(t, "", "-mode", "digest", "-algorithm", "sha256", "-file", path, "-json")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var report digestReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if report.Digest != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" || report.Size != 11 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSplitWritesManifestForCompose(t *testing.T) {
	path := writeTestFile(t, "abcdefghij")
	manifestPath := filepath.Join(t.TempDir(), "object.segments")
	code, out, stderr := runCLI(t, "", "-mode", "split", "-file", path, "-segment-size", "4", "-manifest", manifestPath)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 3 segment lines and a total, got %q", out)
	}
	if lines[0] != "0 0 4 e2fc714c4727ee9395f324cd2e7f331f" {
		t.Fatalf("unexpected first segment line %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "e6bd43055bd50b0da031eb37cafb3a9d") {
		t.Fatalf("unexpected composite line %q", lines[3])
	}

	code, out, stderr = runCLI(t, "", "-mode", "compose", "-manifest", manifestPath, "-encoding", "binary", "-suffix")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(out) != "446feba4c1b5cc7ad93bf4d44a0e36ac-3" {
		t.Fatalf("unexpected compose output %q", out)
	}
}

func TestSplitRejectsEmptyFile(t *testing.T) {
	path := writeTestFile(t, "")
	if code, _, _ := runCLI(t, "", "-mode", "split", "-file", path); code != exitFailure {
		t.Fatalf("expected failure for empty file, got %d", code)
	}
	if code, _, _ := runCLI(t, "", "-mode", "split"); code != exitFailure {
		t.Fatalf("expected failure without -file, got %d", code)
	}
}

func TestUploadLedgerFlow(t *testing.T) {
	ledger := filepath.Join(t.TempDir(), "ledger.db")
	code, out, stderr := runCLI(t, "", "-mode", "upload-create", "-ledger", ledger, "-object", "composed.mp4")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	uploadID := strings.TrimSpace(out)
	if uploadID == "" {
		t.Fatalf("expected upload id")
	}
	for i := len(goldenSegments); i >= 1; i-- {
		code, _, stderr = runCLI(t, "", "-mode", "upload-part", "-ledger", ledger, "-upload-id", uploadID,
			"-part", strconv.Itoa(i), "-digest", goldenSegments[i-1], "-size", "100")
		if code != exitOK {
			t.Fatalf("upload-part %d exit %d: %s", i, code, stderr)
		}
	}
	code, out, stderr = runCLI(t, "", "-mode", "upload-parts", "-ledger", ledger, "-upload-id", uploadID)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "1 "+goldenSegments[0]) {
		t.Fatalf("parts not ordered: %q", out)
	}
	code, out, stderr = runCLI(t, "", "-mode", "upload-complete", "-ledger", ledger, "-upload-id", uploadID, "-suffix")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(out) != "b99ac2bdcda5e1bdcc1693be00410cea-3" {
		t.Fatalf("unexpected checksum %q", out)
	}
	code, out, _ = runCLI(t, "", "-mode", "upload-list", "-ledger", ledger, "-state", "COMPLETED")
	if code != exitOK || !strings.Contains(out, uploadID) {
		t.Fatalf("completed upload not listed: %d %q", code, out)
	}
	if code, _, _ = runCLI(t, "", "-mode", "upload-abort", "-ledger", ledger, "-upload-id", uploadID); code != exitFailure {
		t.Fatalf("expected abort of completed upload to fail, got %d", code)
	}
}

func TestUploadCompleteIgnoresAlgorithmFlag(t *testing.T) {
	ledger := filepath.Join(t.TempDir(), "ledger.db")
	_, out, _ := runCLI(t, "", "-mode", "upload-create", "-ledger", ledger, "-object", "composed.mp4")
	uploadID := strings.TrimSpace(out)
	for i, seg := range goldenSegments {
		if code, _, stderr := runCLI(t, "", "-mode", "upload-part", "-ledger", ledger, "-upload-id", uploadID,
			"-part", strconv.Itoa(i+1), "-digest", seg); code != exitOK {
			t.Fatalf("upload-part exit %d: %s", code, stderr)
		}
	}
	code, out, stderr := runCLI(t, "", "-mode", "upload-complete", "-ledger", ledger, "-upload-id", uploadID, "-algorithm", "crc32")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if strings.TrimSpace(out) != "b99ac2bdcda5e1bdcc1693be00410cea" {
		t.Fatalf("unexpected checksum %q", out)
	}
}

func TestUploadAbortJSON(t *testing.T) {
	ledger := filepath.Join(t.TempDir(), "ledger.db")
	_, out, _ := runCLI(t, "", "-mode", "upload-create", "-ledger", ledger, "-object", "composed.mp4")
	uploadID := strings.TrimSpace(out)
	code, out, stderr := runCLI(t, "", "-mode", "upload-abort", "-ledger", ledger, "-upload-id", uploadID, "-json")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var status map[string]string
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("Unmarshal %q: %v", out, err)
	}
	if status["status"] != "ok" {
		t.Fatalf("unexpected status %+v", status)
	}
	if code, _, _ := runCLI(t, "", "-mode", "upload-parts", "-ledger", ledger, "-upload-id", uploadID); code != exitFailure {
		t.Fatalf("expected aborted upload to be gone, got %d", code)
	}
}

type fakeHeader struct {
	etag string
}

func (f *fakeHeader) HeadObject(ctx context.Context, bucket, key string) (remote.ObjectInfo, error) {
	return remote.ObjectInfo{Bucket: bucket, Key: key, ETag: f.etag}, nil
}

func withFakeHeader(t *testing.T, etag string) {
	t.Helper()
	prev := newObjectHeader
	newObjectHeader = func(ctx context.Context, cfg *cliConfig) (remote.ObjectHeader, error) {
		return &fakeHeader{etag: etag}, nil
	}
	t.Cleanup(func() { newObjectHeader = prev })
}

func TestVerify(t *testing.T) {
	withFakeHeader(t, `"446feba4c1b5cc7ad93bf4d44a0e36ac-3"`)
	path := writeTestFile(t, "abcdefghij")
	code, out, stderr := runCLI(t, "", "-mode", "verify", "-bucket", "test", "-key", "object.bin", "-file", path, "-segment-size", "4")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "ok 446feba4c1b5cc7ad93bf4d44a0e36ac-3") {
		t.Fatalf("unexpected output %q", out)
	}

	code, out, _ = runCLI(t, "", "-mode", "verify", "-bucket", "test", "-key", "object.bin", "-file", path, "-segment-size", "5", "-json")
	if code != exitMismatch {
		t.Fatalf("expected mismatch exit, got %d", code)
	}
	var report verifyReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if report.Match || report.Reason == "" {
		t.Fatalf("unexpected report %+v", report)
	}

	if code, _, _ := runCLI(t, "", "-mode", "verify", "-file", path); code != exitFailure {
		t.Fatalf("expected failure without bucket/key, got %d", code)
	}
}

func TestVerifySinglePutObject(t *testing.T) {
	withFakeHeader(t, `"a925576942e94b2ef57a066101b48876"`)
	path := writeTestFile(t, "abcdefghij")
	code, out, stderr := runCLI(t, "", "-mode", "verify", "-bucket", "test", "-key", "object.bin", "-file", path, "-segment-size", "4")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(out, "ok a925576942e94b2ef57a066101b48876") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVerifyExplicitHexEncoding(t *testing.T) {
	withFakeHeader(t, "b99ac2bdcda5e1bdcc1693be00410cea-3")
	args := append([]string{"-mode", "verify", "-bucket", "test", "-key", "composed.mp4", "-encoding", "hex"}, goldenSegments...)
	if code, _, stderr := runCLI(t, "", args...); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	args = append([]string{"-mode", "verify", "-bucket", "test", "-key", "composed.mp4"}, goldenSegments...)
	if code, _, _ := runCLI(t, "", args...); code != exitMismatch {
		t.Fatalf("expected binary comparison by default, got %d", code)
	}
}

func TestVersionAndModeHelp(t *testing.T) {
	code, out, _ := runCLI(t, "", "-version")
	if code != exitOK || !strings.HasPrefix(out, "segetag ") {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
	code, out, _ = runCLI(t, "", "-mode", "split", "-mode-help")
	if code != exitOK || !strings.HasPrefix(out, "Mode split") {
		t.Fatalf("unexpected mode help %d %q", code, out)
	}
}
