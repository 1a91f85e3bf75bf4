package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"briefcast/internal/publish"
	"briefcast/internal/script"
	"briefcast/internal/sources"
	"briefcast/internal/storage"
	"briefcast/internal/types"
)

// Stage identifies where a run currently is in the state machine. Stages
// advance strictly forward.
type Stage int

const (
	StageFetching Stage = iota
	StageFiltering
	StageScripting
	StageSynthesizing
	StagePublishing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageFiltering:
		return "filtering"
	case StageScripting:
		return "scripting"
	case StageSynthesizing:
		return "synthesizing"
	case StagePublishing:
		return "publishing"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// ScriptWriter generates scripts and titles from newsletter batches.
type ScriptWriter interface {
	Briefing(ctx context.Context, items []types.Newsletter, targetMinutes int, profile types.Profile) (string, error)
	Segments(ctx context.Context, items []types.Newsletter, segmentMinutes int) []script.Segment
	Title(ctx context.Context, items []types.Newsletter) string
}

// AudioSynthesizer renders a script to an audio file.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// RelevanceFilter scores newsletters against the listener profile.
type RelevanceFilter interface {
	Filter(ctx context.Context, items []types.Newsletter, profile types.Profile) (ranked []types.Scored, all []types.Scored)
}

// PrimaryStore is the distribution target a run cannot succeed without.
type PrimaryStore interface {
	Publish(audioPath, title, script string) (string, publish.EpisodeMeta, error)
}

// SecondaryDistributor is an optional extra target whose failure never fails
// the run.
type SecondaryDistributor interface {
	Announce(meta publish.EpisodeMeta) (string, error)
}

// Recorder persists episodes and run outcomes.
type Recorder interface {
	AddEpisode(ctx context.Context, ep storage.Episode) (int64, error)
	RecordRun(ctx context.Context, run storage.Run) error
}

// Options parameterize one run.
type Options struct {
	OutputDir      string
	Lookback       time.Duration
	TargetMinutes  int
	Filters        []string
	Quick          bool
	SmartFilter    bool
	SegmentMinutes int
}

// Pipeline orchestrates one briefing generation end to end. Filter,
// Secondary, and Recorder may be nil; the corresponding steps are skipped.
type Pipeline struct {
	Fetches    []sources.AccountFetch
	Aggregator *sources.Aggregator
	Filter     RelevanceFilter
	Scripts    ScriptWriter
	Voice      AudioSynthesizer
	Primary    PrimaryStore
	Secondary  SecondaryDistributor
	Recorder   Recorder
	Combine    Combiner
	Profile    types.Profile
	Options    Options

	opened []types.Source
}

// Run executes the full pipeline and always returns a complete result; the
// caller distinguishes "ran with warnings" from "failed" solely through
// result.Success and result.Errors.
func (p *Pipeline) Run(ctx context.Context) *types.PipelineResult {
	result := types.NewPipelineResult()
	defer p.finish(ctx, result)

	items, ok := p.gather(ctx, result)
	if !ok {
		return result
	}
	result.NewslettersFound = len(items)

	slog.Info("Stage transition", "stage", StageScripting.String())
	minutes := p.targetMinutes()
	scriptText, err := p.Scripts.Briefing(ctx, items, minutes, p.Profile)
	if err != nil {
		slog.Error("Error generating script, continuing with placeholder", "error", err)
		result.AddError(err.Error())
		scriptText = fmt.Sprintf("Error generating podcast script: %v", err)
	}

	stamp := time.Now().Format("20060102_150405")
	scriptPath := filepath.Join(p.Options.OutputDir, fmt.Sprintf("podcast_script_%s.txt", stamp))
	if err := writeText(scriptPath, scriptText); err != nil {
		slog.Warn("Failed to save script file", "error", err)
		result.AddError(fmt.Sprintf("failed to save script: %v", err))
	} else {
		result.ScriptPath = scriptPath
	}

	slog.Info("Stage transition", "stage", StageSynthesizing.String())
	audioPath := filepath.Join(p.Options.OutputDir, fmt.Sprintf("podcast_%s.mp3", stamp))
	if err := p.Voice.Synthesize(ctx, scriptText, audioPath); err != nil {
		stageErr := types.NewStageError(StageSynthesizing.String(), err, true)
		slog.Error("Audio synthesis failed, aborting run", "error", stageErr)
		result.AddError(fmt.Sprintf("audio synthesis failed: %v", err))
		return result
	}
	result.AudioPath = audioPath

	slog.Info("Stage transition", "stage", StagePublishing.String())
	title := p.Scripts.Title(ctx, items)
	ref, meta, err := p.Primary.Publish(audioPath, title, scriptText)
	if err != nil {
		stageErr := types.NewStageError(StagePublishing.String(), err, true)
		slog.Error("Primary storage failed, aborting run", "error", stageErr)
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

// gather runs the Fetching and Filtering stages. It returns the newsletters
// ready for scripting, or ok=false when the run must terminate early.
func (p *Pipeline) gather(ctx context.Context, result *types.PipelineResult) ([]types.Newsletter, bool) {
	slog.Info("Stage transition", "stage", StageFetching.String())

	keywords := p.Options.Filters
	if len(keywords) == 0 && p.Options.SmartFilter {
		keywords = p.Profile.SimpleKeywords()
	}

	fetches := make([]sources.AccountFetch, 0, len(p.Fetches))
	for _, fetch := range p.Fetches {
		query := fetch.Query
		query.Lookback = p.Options.Lookback
		query.Keywords = keywords
		query.UseCache = p.Options.Quick
		fetches = append(fetches, sources.AccountFetch{Source: fetch.Source, Query: query})
	}

	connected := p.connectAll(ctx, fetches, result)
	items, failures := p.Aggregator.Aggregate(ctx, connected)
	for _, failure := range failures {
		result.AddError(failure)
	}

	if len(items) == 0 {
		result.AddError("no newsletters found in the specified time period")
		return nil, false
	}

	snapshotNewsletters(p.Options.OutputDir, items)

	if p.Filter != nil {
		slog.Info("Stage transition", "stage", StageFiltering.String())
		ranked, all := p.Filter.Filter(ctx, items, p.Profile)
		snapshotVerdicts(p.Options.OutputDir, all)

		if len(ranked) == 0 {
			result.AddError("no relevant newsletters after filtering")
			return nil, false
		}

		filtered := make([]types.Newsletter, 0, len(ranked))
		for _, scored := range ranked {
			filtered = append(filtered, scored.Newsletter)
		}
		items = filtered
	}

	return items, true
}

// connectAll opens every source, dropping the ones that fail to connect.
// Opened sources are registered for guaranteed release when the run ends.
func (p *Pipeline) connectAll(ctx context.Context, fetches []sources.AccountFetch, result *types.PipelineResult) []sources.AccountFetch {
	usable := make([]sources.AccountFetch, 0, len(fetches))
	for _, fetch := range fetches {
		if err := fetch.Source.Connect(ctx); err != nil {
			slog.Error("Error connecting to source", "source", fetch.Source.Name(), "error", err)
			result.AddError(fmt.Sprintf("failed to fetch from %s: %v", fetch.Source.Name(), err))
			continue
		}
		p.opened = append(p.opened, fetch.Source)
		usable = append(usable, fetch)
	}
	return usable
}

// finish is the single cleanup path for every exit: release sources, stamp
// the end time, record the run, and persist the result snapshot.
func (p *Pipeline) finish(ctx context.Context, result *types.PipelineResult) {
	for _, src := range p.opened {
		src.Disconnect()
	}
	p.opened = nil

	result.Finalize()
	snapshotResult(p.Options.OutputDir, result)

	if p.Recorder != nil {
		err := p.Recorder.RecordRun(ctx, storage.Run{
			StartedAt:        result.StartedAt,
			EndedAt:          result.EndedAt,
			Success:          result.Success,
			NewslettersFound: result.NewslettersFound,
			Errors:           result.Errors,
		})
		if err != nil {
			slog.Warn("Failed to record run", "error", err)
		}
	}
}

func (p *Pipeline) recordEpisode(ctx context.Context, meta publish.EpisodeMeta, scriptPath string, count int) {
	if p.Recorder == nil {
		return
	}
	_, err := p.Recorder.AddEpisode(ctx, storage.Episode{
		Title:           meta.Title,
		AudioPath:       meta.FileName,
		ScriptPath:      scriptPath,
		AudioHash:       meta.AudioHash,
		SizeBytes:       meta.SizeBytes,
		DurationMinutes: meta.DurationMinutes,
		NewsletterCount: count,
	})
	if err != nil {
		slog.Warn("Failed to record episode", "error", err)
	}
}

// targetMinutes applies the quick-mode reduction: a quarter of the configured
// duration, never below two minutes.
func (p *Pipeline) targetMinutes() int {
	minutes := p.Options.TargetMinutes
	if p.Options.Quick {
		minutes = minutes / 4
		if minutes < 2 {
			minutes = 2
		}
	}
	return minutes
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
