package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"briefcast/internal/cache"
	"briefcast/internal/config"
	"briefcast/internal/filter"
	"briefcast/internal/oracle"
	"briefcast/internal/pipeline"
	"briefcast/internal/publish"
	"briefcast/internal/script"
	"briefcast/internal/server/feed"
	"briefcast/internal/sources"
	"briefcast/internal/storage"
	"briefcast/internal/types"
	"briefcast/internal/voice"
)

// Overrides are the command-line knobs layered over the config file for one
// invocation.
type Overrides struct {
	LookbackHours   int
	DurationMinutes int
	OutputDir       string
	Filters         []string
	Quick           bool
	Segmented       bool
	SegmentMinutes  int
}

// App wires configuration into a ready-to-run pipeline plus its supporting
// services.
type App struct {
	Config    *config.Config
	Store     *storage.Store
	Pipeline  *pipeline.Pipeline
	Feed      *feed.Server
	Segmented bool

	redis *cache.RedisStore
}

func New(cfg *config.Config, overrides Overrides) (*App, error) {
	app := &App{Config: cfg, Segmented: overrides.Segmented || cfg.Generator.Segmented}

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	app.Store = store

	scriptOracle, err := buildOracle(cfg.Oracle, cfg.Oracle.Model)
	if err != nil {
		store.Close()
		return nil, err
	}

	var engine pipeline.RelevanceFilter
	if cfg.Personalization.FilterMode == "smart" {
		filterOracle, err := buildFilterOracle(cfg.Oracle)
		if err != nil {
			store.Close()
			return nil, err
		}
		engine = filter.New(filterOracle, cfg.Oracle.MaxConcurrency)
	}

	synth, err := voice.NewSynthesizer(cfg.Voice.APIKey, cfg.Voice.TimeoutDuration(),
		voice.WithVoiceID(cfg.Voice.VoiceID))
	if err != nil {
		store.Close()
		return nil, err
	}

	var announcer pipeline.SecondaryDistributor
	if cfg.Discord.Enabled {
		a, err := publish.NewAnnouncer(cfg.Discord.Token, cfg.Discord.ChannelID)
		if err != nil {
			store.Close()
			return nil, err
		}
		announcer = a
	}

	opts := buildOptions(cfg, overrides)
	app.Pipeline = &pipeline.Pipeline{
		Fetches:    buildFetches(cfg),
		Aggregator: sources.NewAggregator(app.buildCache(cfg)),
		Filter:     engine,
		Scripts:    script.NewGenerator(scriptOracle),
		Voice:      synth,
		Primary:    publish.NewLocalStore(cfg.Storage.UploadDir),
		Secondary:  announcer,
		Recorder:   store,
		Profile: types.Profile{
			Name:      cfg.Personalization.UserName,
			Role:      cfg.Personalization.UserRole,
			Interests: cfg.Personalization.Interests,
		},
		Options: opts,
	}

	if cfg.Server.Enabled {
		app.Feed = feed.New(cfg.Generator.Name, feed.Config{
			Port:      cfg.Server.Port,
			FeedSize:  cfg.Server.FeedSize,
			BaseURL:   cfg.Storage.BaseURL,
			UploadDir: cfg.Storage.UploadDir,
		}, store)
	}

	return app, nil
}

// Run executes one pipeline run in the configured variant.
func (a *App) Run(ctx context.Context) *types.PipelineResult {
	if a.Segmented {
		return a.Pipeline.RunSegmented(ctx)
	}
	return a.Pipeline.Run(ctx)
}

func (a *App) Close() {
	if a.Feed != nil {
		if err := a.Feed.Shutdown(context.Background()); err != nil {
			slog.Warn("Feed server shutdown failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("Redis close failed", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			slog.Warn("Storage close failed", "error", err)
		}
	}
}

func buildOptions(cfg *config.Config, overrides Overrides) pipeline.Options {
	opts := pipeline.Options{
		OutputDir:      cfg.Generator.OutputDir,
		Lookback:       cfg.Generator.Lookback(),
		TargetMinutes:  cfg.Generator.DurationMinutes,
		Filters:        overrides.Filters,
		Quick:          overrides.Quick || cfg.Generator.Quick,
		SmartFilter:    cfg.Personalization.FilterMode == "smart",
		SegmentMinutes: cfg.Generator.SegmentMinutes,
	}
	if overrides.LookbackHours > 0 {
		opts.Lookback = time.Duration(overrides.LookbackHours) * time.Hour
	}
	if overrides.DurationMinutes > 0 {
		opts.TargetMinutes = overrides.DurationMinutes
	}
	if overrides.OutputDir != "" {
		opts.OutputDir = overrides.OutputDir
	}
	if overrides.SegmentMinutes > 0 {
		opts.SegmentMinutes = overrides.SegmentMinutes
	}
	return opts
}

// buildFetches creates one fetch per configured mail account and feed, in
// config order.
func buildFetches(cfg *config.Config) []sources.AccountFetch {
	fetches := make([]sources.AccountFetch, 0, len(cfg.Accounts)+len(cfg.Feeds))
	for _, account := range cfg.Accounts {
		fetches = append(fetches, sources.AccountFetch{
			Source: sources.NewIMAPSource(account.Address, account.Password, account.IMAPServer, account.IMAPPort),
			Query:  types.FetchQuery{Folder: account.Folder},
		})
	}
	for _, fc := range cfg.Feeds {
		fetches = append(fetches, sources.AccountFetch{
			Source: sources.NewRSSSource(fc.Name, fc.URL, fc.MaxItems, fc.FullText),
		})
	}
	return fetches
}

func (a *App) buildCache(cfg *config.Config) cache.Store {
	if !cfg.Cache.Enabled {
		return nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		a.redis = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.StalenessDuration())
		return a.redis
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = "cache"
		}
		return cache.NewFileStore(dir, cfg.Cache.StalenessDuration())
	}
}

func buildOracle(cfg config.OracleConfig, model string) (oracle.Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return oracle.NewAnthropic(cfg.APIKey, model, cfg.TimeoutDuration())
	case "ollama":
		return oracle.NewOllama(model, cfg.TimeoutDuration())
	}
	return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
}

// buildFilterOracle uses the cheaper filter model with deterministic
// sampling for verdict scoring.
func buildFilterOracle(cfg config.OracleConfig) (oracle.Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return oracle.NewAnthropic(cfg.APIKey, cfg.FilterModel, cfg.TimeoutDuration(),
			oracle.WithMaxTokens(1024),
			oracle.WithTemperature(0))
	case "ollama":
		return oracle.NewOllama(cfg.FilterModel, cfg.TimeoutDuration())
	}
	return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
}
