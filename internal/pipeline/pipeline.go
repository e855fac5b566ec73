package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/forPelevin/fallacycheck/internal/cache"
	"github.com/forPelevin/fallacycheck/internal/config"
	"github.com/forPelevin/fallacycheck/internal/credentials"
	"github.com/forPelevin/fallacycheck/internal/domain/subtitles"
	"github.com/forPelevin/fallacycheck/internal/domain/timecode"
	"github.com/forPelevin/fallacycheck/internal/ports"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/langchain"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/openrouter"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/youtube"
	"github.com/forPelevin/fallacycheck/internal/types"
	"github.com/forPelevin/fallacycheck/internal/usecase"
)

const (
	ProviderOpenRouter = "openrouter"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Settings config.Config
	Logger   *slog.Logger

	// LocalVideo is a local copy of the video. When set, speech-to-text on it
	// stands in for missing captions.
	LocalVideo string

	// Optional overrides, mostly for tests.
	Transcripts ports.TranscriptSource
	Audio       ports.AudioExtractor
	ASR         ports.ASR
	LLM         ports.Completer
	Cache       ports.VideoCache
	Renderer    ports.VideoRenderer
	Now         func() time.Time
}

func (c Config) Validate() error {
	s := c.Settings
	switch s.LLMProvider {
	case ProviderOpenRouter, langchain.ProviderOpenAI:
		if err := openrouter.ValidateBaseURL(s.OpenRouterBaseURL, s.OpenRouterAllowedHosts); err != nil {
			return err
		}
	case langchain.ProviderOllama:
		if strings.TrimSpace(s.OllamaModel) == "" {
			return errors.New("OLLAMA_MODEL is required for the ollama provider")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", s.LLMProvider)
	}
	switch s.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", s.CacheBackend)
	}
	if c.LocalVideo != "" {
		if _, err := os.Stat(c.LocalVideo); err != nil {
			return fmt.Errorf("stat video: %w", err)
		}
	}
	if c.Transcripts == nil {
		return youtube.ValidateBaseURL(s.YouTubeBaseURL, s.YouTubeAllowedHosts)
	}
	return nil
}

// App is the wired object graph shared by the CLI commands and the server.
type App struct {
	Usecase     usecase.Usecase
	Credentials *credentials.FileStore
	Keys        credentials.Resolver
	Logger      *slog.Logger

	renderer ports.VideoRenderer
	now      func() time.Time
	closers  []func() error
}

// Build wires the adapters selected by cfg. On error, anything already opened
// (such as the Redis connection) is closed again.
func Build(ctx context.Context, cfg Config) (_ *App, err error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := cfg.Settings

	credPath := s.CredentialsFile
	if credPath == "" {
		p, err := credentials.DefaultPath()
		if err != nil {
			return nil, err
		}
		credPath = p
	}
	store := credentials.NewFileStore(credPath)
	keys := credentials.Resolver{
		Env:   func() string { return s.OpenRouterAPIKey },
		Store: store,
	}

	ff := ffmpeg.New(s.FFmpegPath, s.FFprobePath)
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = ff
	}
	app := &App{Credentials: store, Keys: keys, Logger: logger, renderer: renderer, now: now}

	videoCache := cfg.Cache
	if videoCache == nil {
		videoCache, err = buildCache(ctx, s, now, logger)
		if err != nil {
			return nil, err
		}
	}
	if c, ok := videoCache.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close())
		}
	}()

	transcripts := cfg.Transcripts
	if transcripts == nil {
		transcripts = youtube.New(youtube.Config{
			BaseURL: s.YouTubeBaseURL,
			Cookie:  s.YouTubeCookie,
			SAPISID: s.YouTubeSAPISID,
			Now:     now,
		}, logger)
	}
	if cfg.LocalVideo != "" {
		var audio ports.AudioExtractor = ff
		if cfg.Audio != nil {
			audio = cfg.Audio
		}
		var asr ports.ASR = whispercpp.New(s.WhisperBin, s.WhisperModel)
		if cfg.ASR != nil {
			asr = cfg.ASR
		}
		transcripts = fallbackSource{
			primary: transcripts,
			secondary: localTranscripts{
				video:   cfg.LocalVideo,
				workDir: s.WorkDir,
				audio:   audio,
				asr:     asr,
				log:     logger,
			},
			log: logger,
		}
	}

	llm := cfg.LLM
	if llm == nil {
		llm, err = buildCompleter(s, keys.Resolve, logger)
		if err != nil {
			return nil, err
		}
	}

	app.Usecase = usecase.New(usecase.Deps{
		Transcripts: transcripts,
		Cache:       videoCache,
		LLM:         llm,
		CacheTTL:    s.CacheTTL,
		Now:         now,
		Logger:      logger,
	})
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func buildCache(ctx context.Context, s config.Config, now func() time.Time, logger *slog.Logger) (ports.VideoCache, error) {
	if s.CacheBackend == BackendRedis {
		r, err := cache.ConnectRedis(ctx, s.RedisAddr, "")
		if err != nil {
			return nil, err
		}
		logger.Info("transcript cache", "backend", BackendRedis, "addr", s.RedisAddr)
		return r, nil
	}

	opts := []cache.Option{cache.WithClock(now)}
	if s.CacheMaxEntries > 0 {
		p, err := cache.LRU(s.CacheMaxEntries)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithPolicy(p))
	}
	logger.Debug("transcript cache", "backend", BackendMemory, "max_entries", s.CacheMaxEntries)
	return cache.NewMemory(opts...), nil
}

func buildCompleter(s config.Config, resolve openrouter.KeyFunc, logger *slog.Logger) (ports.Completer, error) {
	switch s.LLMProvider {
	case langchain.ProviderOllama:
		return langchain.New(langchain.Config{
			Provider: langchain.ProviderOllama,
			Model:    s.OllamaModel,
			BaseURL:  s.OllamaHost,
		})
	case langchain.ProviderOpenAI:
		// OpenRouter's OpenAI-compatible surface through langchaingo.
		return &keyedCompleter{
			resolve: resolve,
			build: func(key string) (ports.Completer, error) {
				return langchain.New(langchain.Config{
					Provider: langchain.ProviderOpenAI,
					Model:    s.OpenRouterModel,
					APIKey:   key,
					BaseURL:  strings.TrimRight(s.OpenRouterBaseURL, "/") + "/api/v1",
				})
			},
		}, nil
	case ProviderOpenRouter:
		return openrouter.New(resolve, s.OpenRouterModel, s.OpenRouterBaseURL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", s.LLMProvider)
	}
}

// keyedCompleter rebuilds the underlying client whenever the resolved key
// changes, so keys saved through the settings surface apply immediately.
type keyedCompleter struct {
	resolve openrouter.KeyFunc
	build   func(key string) (ports.Completer, error)

	mu  sync.Mutex
	key string
	cur ports.Completer
}

func (k *keyedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	key, err := k.resolve()
	if err != nil {
		return "", err
	}
	k.mu.Lock()
	if k.cur == nil || key != k.key {
		c, err := k.build(key)
		if err != nil {
			k.mu.Unlock()
			return "", err
		}
		k.cur, k.key = c, key
	}
	c := k.cur
	k.mu.Unlock()
	return c.Complete(ctx, system, user)
}

type AnalyzeOptions struct {
	VideoID string
	Title   string
	OutDir  string
	// WriteASS also renders the fallacies as an ASS subtitle track.
	WriteASS bool
	// BurnInto is a local copy of the video; when set, the subtitle track is
	// burned into annotated.mp4 next to the report.
	BurnInto string
	Logf     func(format string, args ...any)
}

type AnalyzeOutput struct {
	Report     types.Report
	RunDir     string
	ReportPath string
	ASSPath    string
	VideoPath  string
}

// Analyze runs the usecase and writes report.json (plus fallacies.ass when
// requested) into a fresh per-run directory under OutDir.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) (AnalyzeOutput, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	if opts.BurnInto != "" {
		if _, err := os.Stat(opts.BurnInto); err != nil {
			return AnalyzeOutput{}, fmt.Errorf("stat video: %w", err)
		}
		opts.WriteASS = true
	}

	logf("analyzing %s", opts.VideoID)
	res, err := a.Usecase.Analyze(ctx, usecase.Input{VideoID: opts.VideoID, Title: opts.Title})
	if err != nil {
		return AnalyzeOutput{}, err
	}
	if res.Cached {
		logf("transcript served from cache")
	}
	logf("found %d fallacies in %d segments", len(res.Fallacies), len(res.Segments))

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "out"
	}
	name := opts.Title
	if name == "" {
		name = opts.VideoID
	}
	runOutDir := buildRunOutDir(outDir, name, a.now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return AnalyzeOutput{}, err
	}
	logf("output run dir: %s", runOutDir)

	out := AnalyzeOutput{Report: res.Report(), RunDir: runOutDir}

	b, err := json.MarshalIndent(out.Report, "", "  ")
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("marshal report: %w", err)
	}
	out.ReportPath = filepath.Join(runOutDir, "report.json")
	if err := os.WriteFile(out.ReportPath, b, 0o644); err != nil {
		return AnalyzeOutput{}, err
	}
	logf("report written (%d fallacies): %s", len(res.Fallacies), out.ReportPath)

	if !opts.WriteASS {
		return out, nil
	}
	shown := res.Fallacies
	if opts.BurnInto != "" {
		d, err := a.renderer.ProbeDuration(ctx, opts.BurnInto)
		if err != nil {
			return AnalyzeOutput{}, err
		}
		shown = withinDuration(res.Fallacies, d)
		if dropped := len(res.Fallacies) - len(shown); dropped > 0 {
			logf("skipping %d fallacies past the end of %s", dropped, opts.BurnInto)
		}
	}
	out.ASSPath = filepath.Join(runOutDir, "fallacies.ass")
	ass := subtitles.RenderFallacyASS(shown, subtitles.DefaultShow)
	if err := os.WriteFile(out.ASSPath, []byte(ass), 0o644); err != nil {
		return AnalyzeOutput{}, err
	}
	logf("subtitles written: %s", out.ASSPath)

	if opts.BurnInto != "" {
		out.VideoPath = filepath.Join(runOutDir, "annotated.mp4")
		logf("rendering annotated video")
		if err := a.renderer.BurnSubtitles(ctx, opts.BurnInto, out.ASSPath, out.VideoPath); err != nil {
			return AnalyzeOutput{}, err
		}
		logf("annotated video written: %s", out.VideoPath)
	}
	return out, nil
}

func withinDuration(fs []types.Fallacy, d time.Duration) []types.Fallacy {
	out := make([]types.Fallacy, 0, len(fs))
	for _, f := range fs {
		if timecode.Duration(f.Timestamp) < d {
			out = append(out, f)
		}
	}
	return out
}

func buildRunOutDir(outRoot, name string, now time.Time) string {
	seg := normalizePathSegment(name)
	if seg == "" {
		seg = "video"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", name, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", seg, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.TranscriptSource = (*youtube.Adapter)(nil)
var _ ports.Completer = (*openrouter.Adapter)(nil)
var _ ports.Completer = (*langchain.Adapter)(nil)
var _ ports.Completer = (*keyedCompleter)(nil)
var _ ports.VideoCache = (*cache.Memory)(nil)
var _ ports.VideoCache = (*cache.Redis)(nil)
var _ ports.CredentialStore = (*credentials.FileStore)(nil)
var _ ports.VideoRenderer = (*ffmpeg.Adapter)(nil)
var _ ports.AudioExtractor = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
