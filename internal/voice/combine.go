package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Combine concatenates segment audio files into outPath with ffmpeg's concat
// demuxer, preserving the given order. On failure the inputs are left in
// place so the caller can fall back to publishing them individually.
func Combine(ctx context.Context, segmentPaths []string, outPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to combine")
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	listFile, err := writeConcatList(segmentPaths, filepath.Dir(outPath))
	if err != nil {
		return err
	}
	defer os.Remove(listFile)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w: %s", err, tail(string(out), 300))
	}

	slog.Info("Combined segments", "count", len(segmentPaths), "path", outPath)
	return nil
}

func writeConcatList(paths []string, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "concat_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}
	defer f.Close()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to resolve segment path %s: %w", p, err)
		}
		// Single quotes are the concat demuxer's escaping mechanism.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(f, "file '%s'\n", escaped); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write concat list: %w", err)
		}
	}
	return f.Name(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
