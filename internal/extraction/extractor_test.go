package extraction_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/extraction"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

func TestMetadataParsesDownloaderOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := extraction.NewExtractor(cfg)

	var gotArgs []string
	extractor.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != cfg.Extraction.YtDlpBinary {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return []byte(`{"id":"abc","title":"Intro to Compilers","channel":"CS Lectures","duration":1825.4,"upload_date":"20250110","webpage_url":"https://youtube.com/watch?v=abc","language":"en"}`), nil
	})

	meta, err := extractor.Metadata(context.Background(), "https://youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Title != "Intro to Compilers" || meta.Channel != "CS Lectures" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.DurationSeconds != 1825.4 {
		t.Fatalf("unexpected duration: %v", meta.DurationSeconds)
	}
	if !containsArg(gotArgs, "--dump-single-json") || !containsArg(gotArgs, "--skip-download") {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestMetadataRejectsUnusableOutput(t *testing.T) {
	extractor := extraction.NewExtractor(testsupport.NewConfig(t))
	extractor.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(`{"duration":10}`), nil
	})

	_, err := extractor.Metadata(context.Background(), "https://example.com/v")
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestMetadataWrapsDownloaderFailure(t *testing.T) {
	extractor := extraction.NewExtractor(testsupport.NewConfig(t))
	extractor.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, errors.New("network unreachable")
	})

	_, err := extractor.Metadata(context.Background(), "https://example.com/v")
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

func TestAudioReturnsDownloadedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := extraction.NewExtractor(cfg)
	extractor.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "--output" && i+1 < len(args) {
				target := strings.Replace(args[i+1], "%(ext)s", "mp3", 1)
				testsupport.WriteFile(t, target, 128)
			}
		}
		return nil, nil
	})

	path, err := extractor.Audio(context.Background(), "https://example.com/v", "job-1")
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if filepath.Base(path) != "audio.mp3" {
		t.Fatalf("unexpected audio path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
}

func TestAudioFailsOnEmptyDownload(t *testing.T) {
	extractor := extraction.NewExtractor(testsupport.NewConfig(t))
	extractor.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, nil
	})

	_, err := extractor.Audio(context.Background(), "https://example.com/v", "job-2")
	if !errors.Is(err, services.ErrEmptyAudio) {
		t.Fatalf("expected empty audio error, got %v", err)
	}
}

func TestSplitAudioReturnsOrderedChunks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := extraction.NewExtractor(cfg)

	audioPath := filepath.Join(extractor.JobDir("job-3"), "audio.mp3")
	testsupport.WriteFile(t, audioPath, 64)

	extractor.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != cfg.Extraction.FFmpegBinary {
			t.Fatalf("unexpected binary %q", name)
		}
		dir := filepath.Dir(audioPath)
		for _, chunk := range []string{"chunk_001.mp3", "chunk_000.mp3", "chunk_002.mp3"} {
			testsupport.WriteFile(t, filepath.Join(dir, chunk), 16)
		}
		return nil, nil
	})

	chunks, err := extractor.SplitAudio(context.Background(), audioPath, 600)
	if err != nil {
		t.Fatalf("SplitAudio: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.HasSuffix(chunk, "chunk_00"+string(rune('0'+i))+".mp3") {
			t.Fatalf("chunks out of order: %v", chunks)
		}
	}
}

func TestSplitAudioSkipsWhenChunkingDisabled(t *testing.T) {
	extractor := extraction.NewExtractor(testsupport.NewConfig(t))
	extractor.WithCommandRunner(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		t.Fatal("ffmpeg should not run when chunking is disabled")
		return nil, nil
	})

	chunks, err := extractor.SplitAudio(context.Background(), "/tmp/audio.mp3", 0)
	if err != nil {
		t.Fatalf("SplitAudio: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "/tmp/audio.mp3" {
		t.Fatalf("expected passthrough, got %v", chunks)
	}
}

func TestCleanupRemovesJobDir(t *testing.T) {
	extractor := extraction.NewExtractor(testsupport.NewConfig(t))
	jobDir := extractor.JobDir("job-4")
	testsupport.WriteFile(t, filepath.Join(jobDir, "audio.mp3"), 16)

	if err := extractor.Cleanup("job-4"); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Fatalf("expected job dir removed, err=%v", err)
	}
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}
