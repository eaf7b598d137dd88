package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	p, err := NewProcessor(Config{Dir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	p.run = func(ctx context.Context, target string, stream *ffmpeg.Stream) error {
		return os.WriteFile(target, []byte("artifact"), 0o644)
	}
	p.probe = func(path string, timeout time.Duration) (string, error) {
		format := "mov,mp4,m4a"
		if strings.HasSuffix(path, ".mp3") {
			format = "mp3"
		}
		return fmt.Sprintf(`{"format": {"format_name": %q, "size": "123"}}`, format), nil
	}

	return p
}

func writeUpload(t *testing.T, p *Processor, name string) string {
	t.Helper()

	path := filepath.Join(p.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("upload"), 0o644))
	return path
}

func TestProcessDerivesSilentVideoAndAudioTrack(t *testing.T) {
	p := newTestProcessor(t)
	source := writeUpload(t, p, "clip.mp4")

	artifacts, err := p.Process(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	video := artifacts[0]
	require.Equal(t, KindVideo, video.Kind)
	require.Equal(t, "clip-left-removed-no-audio.mp4", video.Filename)
	require.Equal(t, int64(123), video.Size)
	require.Equal(t, "mov,mp4,m4a", video.Format)
	require.FileExists(t, video.Path)

	audio := artifacts[1]
	require.Equal(t, KindAudio, audio.Kind)
	require.Equal(t, "clip-left-removed-audio.mp3", audio.Filename)
	require.Equal(t, "mp3", audio.Format)
	require.FileExists(t, audio.Path)

	// Every derived name shares the upload's base prefix.
	for _, artifact := range artifacts {
		require.True(t, strings.HasPrefix(artifact.Filename, "clip"))
	}
}

func TestProcessSurfacesSplitFailureAfterBothBranchesFinish(t *testing.T) {
	p := newTestProcessor(t)
	source := writeUpload(t, p, "clip.mp4")

	var mu sync.Mutex
	var targets []string
	p.run = func(ctx context.Context, target string, stream *ffmpeg.Stream) error {
		mu.Lock()
		targets = append(targets, target)
		mu.Unlock()
		if strings.HasSuffix(target, "-audio.mp3") {
			return fmt.Errorf("demux exploded")
		}
		return os.WriteFile(target, []byte("artifact"), 0o644)
	}

	_, err := p.Process(context.Background(), source)
	require.ErrorContains(t, err, "extract audio")
	// crop + both split branches all ran
	require.Len(t, targets, 3)
}

func TestProcessFailsWhenCropFails(t *testing.T) {
	p := newTestProcessor(t)
	source := writeUpload(t, p, "clip.mp4")

	p.run = func(ctx context.Context, target string, stream *ffmpeg.Stream) error {
		return fmt.Errorf("no such codec")
	}

	_, err := p.Process(context.Background(), source)
	require.ErrorContains(t, err, "remove left side")
}

func TestCleanupRemovesUploadAndDerivedFiles(t *testing.T) {
	p := newTestProcessor(t)
	source := writeUpload(t, p, "clip.mp4")

	_, err := p.Process(context.Background(), source)
	require.NoError(t, err)
	unrelated := writeUpload(t, p, "other.mp4")

	require.NoError(t, p.Cleanup("clip.mp4"))

	entries, err := os.ReadDir(p.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.FileExists(t, unrelated)
}

func TestCleanupIsANoOpForMissingFiles(t *testing.T) {
	p := newTestProcessor(t)

	require.NoError(t, p.Cleanup("never-stored.mp4"))
	require.NoError(t, p.Cleanup(""))
}

func TestCleanupIgnoresMissingDirectory(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, os.RemoveAll(p.dir))

	require.NoError(t, p.Cleanup("clip.mp4"))
}

func TestNewProcessorRequiresDirectory(t *testing.T) {
	_, err := NewProcessor(Config{})
	require.Error(t, err)
}
