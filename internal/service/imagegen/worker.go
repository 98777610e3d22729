package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/glowlabs/glowchat/backend/internal/upstream"
)

// WorkerGenerator shells out to the image-generation worker, e.g.
//
//	python3 worker/vqgan_worker.py --prompt "a cat" --output /path/img.png
//
// The worker writes the output file only on success and exits non-zero
// otherwise, so the scratch path is trustworthy when Generate returns nil.
type WorkerGenerator struct {
	command []string
	timeout time.Duration
}

// NewWorkerGenerator configures the worker invocation. command holds the
// executable and any leading arguments; --prompt/--output are appended per
// call.
func NewWorkerGenerator(command []string, timeout time.Duration) (*WorkerGenerator, error) {
	if len(command) == 0 {
		return nil, errors.New("image worker command is empty")
	}
	return &WorkerGenerator{command: command, timeout: timeout}, nil
}

// Generate runs the worker with a bounded deadline. A deadline hit or a
// non-zero exit reports as upstream unavailable with the worker's stderr
// attached.
func (g *WorkerGenerator) Generate(ctx context.Context, prompt, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	args := append(append([]string{}, g.command[1:]...), "--prompt", prompt, "--output", outputPath)
	cmd := exec.CommandContext(ctx, g.command[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("image worker timed out: %w", upstream.ErrUnavailable)
		}
		detail := bytes.TrimSpace(stderr.Bytes())
		if len(detail) > 0 {
			return fmt.Errorf("image worker failed: %s: %w", detail, upstream.ErrUnavailable)
		}
		return fmt.Errorf("image worker failed: %v: %w", err, upstream.ErrUnavailable)
	}
	return nil
}
