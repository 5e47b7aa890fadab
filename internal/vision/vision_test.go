package vision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mirahq/mira-agent/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCaptioner struct {
	caption string
	err     error
	gotJPEG []byte
}

func (f *fakeCaptioner) Caption(_ context.Context, jpeg []byte) (string, error) {
	f.gotJPEG = jpeg
	return f.caption, f.err
}

func TestFragmentDisabled(t *testing.T) {
	p := NewProvider(config.CameraConfig{Enabled: false}, &fakeCaptioner{}, testLogger())
	if p.Enabled() {
		t.Error("Enabled() should be false")
	}
	if got := p.Fragment(context.Background()); got != Placeholder {
		t.Errorf("Fragment() = %q, want placeholder", got)
	}
}

func TestFragmentNoCommand(t *testing.T) {
	p := NewProvider(config.CameraConfig{Enabled: true}, &fakeCaptioner{}, testLogger())
	if p.Enabled() {
		t.Error("Enabled() should require a snapshot command")
	}
}

func TestFragment(t *testing.T) {
	// "cp testdata/frame.jpg <dest>" stands in for a real capture command.
	fc := &fakeCaptioner{caption: " a quiet living room \n"}
	p := NewProvider(config.CameraConfig{
		Enabled:     true,
		SnapshotCmd: "cp testdata/frame.jpg",
	}, fc, testLogger())

	got := p.Fragment(context.Background())
	if got != "a quiet living room" {
		t.Errorf("Fragment() = %q", got)
	}
	if len(fc.gotJPEG) == 0 {
		t.Error("captioner should receive the captured bytes")
	}
}

func TestFragmentSnapshotFailure(t *testing.T) {
	p := NewProvider(config.CameraConfig{
		Enabled:     true,
		SnapshotCmd: "false",
	}, &fakeCaptioner{caption: "unused"}, testLogger())

	if got := p.Fragment(context.Background()); got != Placeholder {
		t.Errorf("Fragment() = %q, want placeholder", got)
	}
}

func TestFragmentEmptySnapshot(t *testing.T) {
	// "true" exits cleanly without writing the image file.
	p := NewProvider(config.CameraConfig{
		Enabled:     true,
		SnapshotCmd: "true",
	}, &fakeCaptioner{caption: "unused"}, testLogger())

	if got := p.Fragment(context.Background()); got != Placeholder {
		t.Errorf("Fragment() = %q, want placeholder", got)
	}
}

func TestFragmentCaptionFailure(t *testing.T) {
	p := NewProvider(config.CameraConfig{
		Enabled:     true,
		SnapshotCmd: "cp testdata/frame.jpg",
	}, &fakeCaptioner{err: errors.New("model unavailable")}, testLogger())

	if got := p.Fragment(context.Background()); got != Placeholder {
		t.Errorf("Fragment() = %q, want placeholder", got)
	}
}
