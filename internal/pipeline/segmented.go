package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"briefcast/internal/types"
	"briefcast/internal/voice"
)

// Combiner concatenates segment audio files into one artifact.
type Combiner func(ctx context.Context, segmentPaths []string, outPath string) error

// RunSegmented is the alternate terminal pipeline: one script-and-audio pair
// per newsletter, concatenated in source order into a single artifact. When
// concatenation fails the per-segment files stand as the run's output
// instead of failing the run.
func (p *Pipeline) RunSegmented(ctx context.Context) *types.PipelineResult {
	result := types.NewPipelineResult()
	defer p.finish(ctx, result)

	items, ok := p.gather(ctx, result)
	if !ok {
		return result
	}
	result.NewslettersFound = len(items)

	slog.Info("Stage transition", "stage", StageScripting.String())
	segments := p.Scripts.Segments(ctx, items, p.Options.SegmentMinutes)

	stamp := time.Now().Format("20060102_150405")
	var fullScript strings.Builder
	for _, seg := range segments {
		fullScript.WriteString(seg.Script)
		fullScript.WriteString("\n\n")
	}
	scriptPath := filepath.Join(p.Options.OutputDir, fmt.Sprintf("podcast_script_%s.txt", stamp))
	if err := writeText(scriptPath, fullScript.String()); err != nil {
		slog.Warn("Failed to save script file", "error", err)
		result.AddError(fmt.Sprintf("failed to save script: %v", err))
	} else {
		result.ScriptPath = scriptPath
	}

	slog.Info("Stage transition", "stage", StageSynthesizing.String())
	var segmentPaths []string
	for i, seg := range segments {
		path := filepath.Join(p.Options.OutputDir, fmt.Sprintf("segment_%02d_%s.mp3", i+1, slugify(seg.Source)))
		if err := p.Voice.Synthesize(ctx, seg.Script, path); err != nil {
			slog.Error("Segment synthesis failed", "segment", i+1, "source", seg.Source, "error", err)
			result.AddError(fmt.Sprintf("segment %d (%s): synthesis failed: %v", i+1, seg.Source, err))
			continue
		}
		segmentPaths = append(segmentPaths, path)
	}
	result.Segments = segmentPaths

	if len(segmentPaths) == 0 {
		result.AddError("audio synthesis failed for every segment")
		return result
	}

	combine := p.Combine
	if combine == nil {
		combine = voice.Combine
	}

	audioPath := segmentPaths[0]
	if len(segmentPaths) > 1 {
		combined := filepath.Join(p.Options.OutputDir, fmt.Sprintf("podcast_%s.mp3", stamp))
		if err := combine(ctx, segmentPaths, combined); err != nil {
			slog.Warn("Failed to combine segments, keeping per-segment files", "error", err)
			result.AddError(fmt.Sprintf("warning: failed to combine segments: %v", err))
			result.Success = true
			return result
		}
		audioPath = combined
	}
	result.AudioPath = audioPath

	slog.Info("Stage transition", "stage", StagePublishing.String())
	title := p.Scripts.Title(ctx, items)
	ref, meta, err := p.Primary.Publish(audioPath, title, fullScript.String())
	if err != nil {
		slog.Error("Primary storage failed, aborting run", "error", err)
		result.AddError(fmt.Sprintf("failed to publish episode: %v", err))
		return result
	}
	result.UploadedURL = ref
	result.Success = true

	if p.Secondary != nil {
		msgRef, err := p.Secondary.Announce(meta)
		if err != nil {
			slog.Warn("Secondary distribution failed", "error", err)
			result.AddError(fmt.Sprintf("warning: announcement failed: %v", err))
		} else {
			result.AnnouncementRef = msgRef
		}
	}

	p.recordEpisode(ctx, meta, scriptPath, len(items))

	slog.Info("Stage transition", "stage", StageDone.String())
	return result
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "segment"
	}
	return b.String()
}
