// Package vision captures a webcam snapshot and turns it into a
// one-line scene description for the prompt. Any failure degrades to a
// fixed placeholder so the turn keeps moving.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mirahq/mira-agent/internal/config"
)

// Placeholder is used when the camera is disabled or capture fails.
const Placeholder = "The camera is offline"

// Captioner describes a JPEG image. Satisfied by the llm client.
type Captioner interface {
	Caption(ctx context.Context, jpeg []byte) (string, error)
}

// Provider produces the camera situational-context fragment.
type Provider struct {
	enabled     bool
	snapshotCmd []string
	captioner   Captioner
	logger      *slog.Logger
}

// NewProvider creates a camera fragment provider from configuration.
func NewProvider(cfg config.CameraConfig, captioner Captioner, logger *slog.Logger) *Provider {
	return &Provider{
		enabled:     cfg.Enabled && cfg.SnapshotCmd != "",
		snapshotCmd: strings.Fields(cfg.SnapshotCmd),
		captioner:   captioner,
		logger:      logger,
	}
}

// Enabled reports whether snapshots will be attempted at all.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// snapshot runs the capture command with a temp file path appended and
// returns the captured image bytes.
func (p *Provider) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "mira-snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	defer os.RemoveAll(dir)

	imgPath := filepath.Join(dir, "frame.jpg")
	args := append(append([]string(nil), p.snapshotCmd[1:]...), imgPath)
	cmd := exec.CommandContext(ctx, p.snapshotCmd[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("snapshot command: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(imgPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}
	return data, nil
}

// Fragment captures a frame, captions it, and returns the description.
// Returns Placeholder on any failure. Never errors.
func (p *Provider) Fragment(ctx context.Context) string {
	if !p.enabled {
		return Placeholder
	}

	jpeg, err := p.snapshot(ctx)
	if err != nil {
		p.logger.Warn("camera snapshot failed", "error", err)
		return Placeholder
	}

	caption, err := p.captioner.Caption(ctx, jpeg)
	if err != nil {
		p.logger.Warn("snapshot caption failed", "error", err)
		return Placeholder
	}

	return strings.TrimSpace(caption)
}
