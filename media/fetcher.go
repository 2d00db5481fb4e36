package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/vault"
)

// Target playback profile. Anything else gets re-encoded.
const (
	targetVideoCodec = "h264"
	targetAudioCodec = "aac"
)

// FetchResult describes a fetched media file on local disk. The caller owns
// LocalPath and must remove it when done.
type FetchResult struct {
	LocalPath  string
	Title      string
	VideoCodec string
	AudioCodec string
}

// NeedsNormalization reports whether the fetched encoding misses the target
// playback profile.
func (r *FetchResult) NeedsNormalization() bool {
	return r.VideoCodec != targetVideoCodec
}

// Fetcher resolves a source reference to a local media file and can
// re-encode files into the target playback profile.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*FetchResult, error)
	Normalize(ctx context.Context, inPath, outPath string) error
}

// commandRunner is the exec seam; tests replace it to avoid spawning
// yt-dlp/ffmpeg.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CommandFetcher drives yt-dlp for retrieval, ffprobe for codec inspection
// and ffmpeg for re-encoding.
type CommandFetcher struct {
	cfg    *config.Fetch
	log    logging.Logger
	runner commandRunner
}

func NewCommandFetcher(cfg *config.Fetch, log logging.Logger) (*CommandFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("fetch config is nil")
	}

	return &CommandFetcher{cfg: cfg, log: log, runner: execRunner{}}, nil
}

// formatSpec prefers streams already in the target profile so most fetches
// skip re-encoding entirely.
func (f *CommandFetcher) formatSpec() string {
	h := f.cfg.MaxHeight
	return fmt.Sprintf(
		"bestvideo[height<=%d][vcodec^=avc][ext=mp4]+bestaudio[acodec=aac][ext=m4a]/"+
			"bestvideo[height<=%d][vcodec^=avc]+bestaudio[acodec=aac]/"+
			"best[height<=%d][ext=mp4]/"+
			"best[height<=%d]",
		h, h, h, h,
	)
}

func (f *CommandFetcher) Fetch(ctx context.Context, ref string) (*FetchResult, error) {
	title := f.fetchTitle(ctx, ref)

	localPath := filepath.Join(f.tempDir(), uuid.New().String()+vault.Extension)

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	_, err := f.runner.Run(fetchCtx, f.cfg.YtdlpPath,
		"-f", f.formatSpec(),
		"--merge-output-format", "mp4",
		"-o", localPath,
		ref,
	)
	if err != nil {
		_ = os.Remove(localPath)
		return nil, &vault.FetchError{Ref: ref, Err: wrapTimeout(fetchCtx, err)}
	}

	videoCodec, audioCodec := f.probeCodecs(ctx, localPath)

	return &FetchResult{
		LocalPath:  localPath,
		Title:      title,
		VideoCodec: videoCodec,
		AudioCodec: audioCodec,
	}, nil
}

// fetchTitle looks up the item title with its own short deadline. Failure
// degrades to an empty title rather than failing the fetch.
func (f *CommandFetcher) fetchTitle(ctx context.Context, ref string) string {
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.ProbeTimeoutSeconds)*time.Second)
	defer cancel()

	out, err := f.runner.Run(probeCtx, f.cfg.YtdlpPath, "--get-title", ref)
	if err != nil {
		f.log.Warn(ctx, "title lookup failed", "ref", ref, "error", err)
		return ""
	}

	return strings.TrimSpace(string(out))
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// probeCodecs inspects the downloaded file. Probe failure yields "unknown"
// codecs, which routes the file through normalization.
func (f *CommandFetcher) probeCodecs(ctx context.Context, path string) (string, string) {
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.ProbeTimeoutSeconds)*time.Second)
	defer cancel()

	out, err := f.runner.Run(probeCtx, f.cfg.FfprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams", path,
	)
	if err != nil {
		f.log.Warn(ctx, "codec probe failed", "path", path, "error", err)
		return "unknown", "unknown"
	}

	var info ffprobeOutput
	if err := json.Unmarshal(out, &info); err != nil {
		f.log.Warn(ctx, "codec probe produced bad json", "path", path, "error", err)
		return "unknown", "unknown"
	}

	videoCodec, audioCodec := "unknown", "unknown"
	for _, stream := range info.Streams {
		switch stream.CodecType {
		case "video":
			videoCodec = stream.CodecName
		case "audio":
			audioCodec = stream.CodecName
		}
	}

	return videoCodec, audioCodec
}

// Normalize re-encodes inPath into the target playback profile at outPath.
func (f *CommandFetcher) Normalize(ctx context.Context, inPath, outPath string) error {
	normCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	_, err := f.runner.Run(normCtx, f.cfg.FfmpegPath,
		"-i", inPath,
		"-c:v", "libx264", "-crf", "23",
		"-c:a", targetAudioCodec, "-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		outPath,
	)
	if err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("re-encode failed: %w", wrapTimeout(normCtx, err))
	}

	return nil
}

func (f *CommandFetcher) tempDir() string {
	if f.cfg.TempDir != "" {
		return f.cfg.TempDir
	}

	return os.TempDir()
}

func wrapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", vault.ErrTimeout, err)
	}

	return err
}
