package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

// Metadata describes a video as reported by the downloader.
type Metadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Channel         string  `json:"channel"`
	Uploader        string  `json:"uploader"`
	DurationSeconds float64 `json:"duration"`
	UploadDate      string  `json:"upload_date"`
	Description     string  `json:"description"`
	WebpageURL      string  `json:"webpage_url"`
	Language        string  `json:"language"`
}

// Extractor shells out to yt-dlp for metadata and audio download and to
// ffmpeg for chunking. Per-job artifacts live under workDir/<job-id>.
type Extractor struct {
	ytDlp         string
	ffmpeg        string
	workDir       string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExtractor builds an extractor from configuration.
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		ytDlp:   cfg.Extraction.YtDlpBinary,
		ffmpeg:  cfg.Extraction.FFmpegBinary,
		workDir: cfg.Paths.WorkDir,
		timeout: time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	e.commandRunner = runner
}

// Metadata fetches video metadata without downloading media.
func (e *Extractor) Metadata(ctx context.Context, url string) (*Metadata, error) {
	output, err := e.run(ctx, e.ytDlp, "--dump-single-json", "--no-playlist", "--skip-download", url)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "extract_info", "metadata", "yt-dlp metadata fetch failed", err)
	}
	var meta Metadata
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "extract_info", "metadata", "decode yt-dlp output", err)
	}
	if meta.Title == "" {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "extract_info", "metadata", "downloader returned no title", nil)
	}
	return &meta, nil
}

// Audio downloads the audio track for a job and returns the file path.
func (e *Extractor) Audio(ctx context.Context, url, jobID string) (string, error) {
	jobDir := e.JobDir(jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	target := filepath.Join(jobDir, "audio.mp3")
	if _, err := e.run(ctx, e.ytDlp,
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--output", filepath.Join(jobDir, "audio.%(ext)s"),
		url,
	); err != nil {
		return "", services.Wrap(services.ErrProviderUnavailable, "extract_audio", "download", "yt-dlp audio download failed", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", services.Wrap(services.ErrEmptyAudio, "extract_audio", "download", "downloader produced no audio file", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrEmptyAudio, "extract_audio", "download", "downloaded audio is empty", nil)
	}
	return target, nil
}

// SplitAudio cuts an audio file into fixed-length chunks without re-encoding
// and returns the chunk paths in playback order.
func (e *Extractor) SplitAudio(ctx context.Context, audioPath string, chunkSeconds int) ([]string, error) {
	if chunkSeconds <= 0 {
		return []string{audioPath}, nil
	}
	dir := filepath.Dir(audioPath)
	pattern := filepath.Join(dir, "chunk_%03d.mp3")
	if _, err := e.run(ctx, e.ffmpeg,
		"-hide_banner",
		"-nostdin",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(chunkSeconds),
		"-c", "copy",
		pattern,
	); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "transcribe", "split", "ffmpeg segmentation failed", err)
	}
	chunks, err := filepath.Glob(filepath.Join(dir, "chunk_*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrEmptyAudio, "transcribe", "split", "segmentation produced no chunks", nil)
	}
	sort.Strings(chunks)
	return chunks, nil
}

// JobDir returns the scratch directory for a job's artifacts.
func (e *Extractor) JobDir(jobID string) string {
	return filepath.Join(e.workDir, jobID)
}

// Cleanup removes the job's scratch directory.
func (e *Extractor) Cleanup(jobID string) error {
	if jobID == "" {
		return nil
	}
	return os.RemoveAll(e.JobDir(jobID))
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
