package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/vault"
)

type recordedCall struct {
	name string
	args []string
}

// stubRunner replies to commands by matching on the binary name, recording
// every invocation.
type stubRunner struct {
	calls     []recordedCall
	titleOut  string
	titleErr  error
	fetchErr  error
	probeOut  string
	probeErr  error
	ffmpegErr error
}

func (r *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, recordedCall{name: name, args: args})

	switch name {
	case "yt-dlp":
		if len(args) > 0 && args[0] == "--get-title" {
			return []byte(r.titleOut + "\n"), r.titleErr
		}
		return nil, r.fetchErr
	case "ffprobe":
		return []byte(r.probeOut), r.probeErr
	case "ffmpeg":
		return nil, r.ffmpegErr
	default:
		return nil, fmt.Errorf("unexpected command %s", name)
	}
}

func newTestFetcher(t *testing.T, runner *stubRunner) *CommandFetcher {
	t.Helper()

	cfg := &config.Fetch{
		YtdlpPath:           "yt-dlp",
		FfprobePath:         "ffprobe",
		FfmpegPath:          "ffmpeg",
		TempDir:             t.TempDir(),
		MaxHeight:           720,
		FetchTimeoutSeconds: 30,
		ProbeTimeoutSeconds: 5,
	}

	fetcher, err := NewCommandFetcher(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("fetcher setup failed: %v", err)
	}

	fetcher.runner = runner
	return fetcher
}

const probeH264AAC = `{"streams":[{"codec_type":"video","codec_name":"h264"},{"codec_type":"audio","codec_name":"aac"}]}`
const probeVP9Opus = `{"streams":[{"codec_type":"video","codec_name":"vp9"},{"codec_type":"audio","codec_name":"opus"}]}`

func TestCommandFetcher_FetchSuccess(t *testing.T) {
	runner := &stubRunner{titleOut: "A Great Video", probeOut: probeH264AAC}
	fetcher := newTestFetcher(t, runner)

	result, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.Title != "A Great Video" {
		t.Fatalf("unexpected title: %q", result.Title)
	}

	if result.VideoCodec != "h264" || result.AudioCodec != "aac" {
		t.Fatalf("unexpected codecs: %s/%s", result.VideoCodec, result.AudioCodec)
	}

	if result.NeedsNormalization() {
		t.Fatalf("h264 result should not need normalization")
	}

	if !strings.HasSuffix(result.LocalPath, vault.Extension) {
		t.Fatalf("expected mp4 temp path, got %s", result.LocalPath)
	}

	// Title probe, download, codec probe.
	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 command invocations, got %d", len(runner.calls))
	}

	download := runner.calls[1]
	if download.name != "yt-dlp" || download.args[0] != "-f" {
		t.Fatalf("unexpected download invocation: %+v", download)
	}

	if !strings.Contains(download.args[1], "height<=720") || !strings.Contains(download.args[1], "vcodec^=avc") {
		t.Fatalf("format spec missing constraints: %s", download.args[1])
	}
}

func TestCommandFetcher_TitleFailureDegrades(t *testing.T) {
	runner := &stubRunner{titleErr: errors.New("no title"), probeOut: probeH264AAC}
	fetcher := newTestFetcher(t, runner)

	result, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.Title != "" {
		t.Fatalf("expected empty title on probe failure, got %q", result.Title)
	}
}

func TestCommandFetcher_FetchFailureWrapsFetchError(t *testing.T) {
	runner := &stubRunner{fetchErr: errors.New("video unavailable")}
	fetcher := newTestFetcher(t, runner)

	_, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc123")

	var fetchErr *vault.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}

	if fetchErr.Ref != "https://youtu.be/abc123" {
		t.Fatalf("unexpected ref in error: %s", fetchErr.Ref)
	}
}

func TestCommandFetcher_ProbeFailureRoutesToNormalization(t *testing.T) {
	runner := &stubRunner{probeErr: errors.New("probe broke")}
	fetcher := newTestFetcher(t, runner)

	result, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.VideoCodec != "unknown" || !result.NeedsNormalization() {
		t.Fatalf("unknown codecs should need normalization: %+v", result)
	}
}

func TestCommandFetcher_NonTargetCodecNeedsNormalization(t *testing.T) {
	runner := &stubRunner{probeOut: probeVP9Opus}
	fetcher := newTestFetcher(t, runner)

	result, err := fetcher.Fetch(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.VideoCodec != "vp9" || !result.NeedsNormalization() {
		t.Fatalf("vp9 should need normalization: %+v", result)
	}
}

func TestCommandFetcher_NormalizeInvokesFfmpeg(t *testing.T) {
	runner := &stubRunner{}
	fetcher := newTestFetcher(t, runner)

	if err := fetcher.Normalize(context.Background(), "/tmp/in.mp4", "/tmp/out.mp4"); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if len(runner.calls) != 1 || runner.calls[0].name != "ffmpeg" {
		t.Fatalf("expected one ffmpeg invocation, got %+v", runner.calls)
	}

	joined := strings.Join(runner.calls[0].args, " ")
	for _, want := range []string{"libx264", "aac", "+faststart", "/tmp/out.mp4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args missing %q: %s", want, joined)
		}
	}
}

func TestCommandFetcher_NormalizeFailure(t *testing.T) {
	runner := &stubRunner{ffmpegErr: errors.New("encode broke")}
	fetcher := newTestFetcher(t, runner)

	if err := fetcher.Normalize(context.Background(), "/tmp/in.mp4", "/tmp/out.mp4"); err == nil {
		t.Fatalf("expected normalize to fail")
	}
}

type hangingRunner struct{}

func (hangingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if len(args) > 0 && args[0] == "--get-title" {
		return []byte("title\n"), nil
	}

	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCommandFetcher_FetchTimeout(t *testing.T) {
	cfg := &config.Fetch{
		YtdlpPath:           "yt-dlp",
		FfprobePath:         "ffprobe",
		FfmpegPath:          "ffmpeg",
		TempDir:             t.TempDir(),
		MaxHeight:           720,
		FetchTimeoutSeconds: 1,
		ProbeTimeoutSeconds: 1,
	}

	fetcher, err := NewCommandFetcher(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("fetcher setup failed: %v", err)
	}
	fetcher.runner = hangingRunner{}

	start := time.Now()
	_, err = fetcher.Fetch(context.Background(), "https://youtu.be/abc123")
	if !errors.Is(err, vault.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout took too long")
	}
}
