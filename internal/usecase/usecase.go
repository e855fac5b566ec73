package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/cache"
	"github.com/forPelevin/fallacycheck/internal/domain/fallacies"
	"github.com/forPelevin/fallacycheck/internal/domain/transcript"
	"github.com/forPelevin/fallacycheck/internal/ports"
	"github.com/forPelevin/fallacycheck/internal/types"
)

const DefaultRunTimeout = 10 * time.Minute

type Deps struct {
	Transcripts ports.TranscriptSource
	Cache       ports.VideoCache
	LLM         ports.Completer

	// Optional.
	CacheTTL time.Duration
	// RunTimeout bounds a shared analysis run, which outlives callers that
	// give up on it.
	RunTimeout time.Duration
	NewID    func() string
	Now      func() time.Time
	Logger   *slog.Logger
}

type Usecase struct {
	d       Deps
	flights *singleflight.Group
}

func New(d Deps) Usecase {
	if d.CacheTTL <= 0 {
		d.CacheTTL = cache.DefaultTTL
	}
	if d.RunTimeout <= 0 {
		d.RunTimeout = DefaultRunTimeout
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.NewString() }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return Usecase{d: d, flights: &singleflight.Group{}}
}

type Input struct {
	VideoID string
	// Title is informational; it defaults to the video id. The cached entry
	// keeps the title of the request that fetched it, but a non-empty Title
	// always labels the caller's own result.
	Title string
}

type Result struct {
	Video     types.VideoData
	Segments  []types.Segment
	Fallacies []types.Fallacy
	Cached    bool
}

func (r Result) Report() types.Report {
	return types.Report{
		VideoID:   r.Video.VideoID,
		Title:     r.Video.Title,
		FetchedAt: r.Video.FetchedAt,
		Segments:  r.Segments,
		Fallacies: r.Fallacies,
	}
}

// Analyze runs cache → fetch → parse → detect for one video. Concurrent calls
// for the same video id share a single run. The run is detached from the
// callers' cancellation: a caller that gives up returns ctx.Err() while the
// others keep waiting for the result.
func (u Usecase) Analyze(ctx context.Context, in Input) (Result, error) {
	if in.VideoID == "" {
		return Result{}, errors.New("video id is empty")
	}
	ch := u.flights.DoChan(in.VideoID, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.d.RunTimeout)
		defer cancel()
		return u.analyze(runCtx, in)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			u.d.Logger.Debug("analysis shared with in-flight request", "video", in.VideoID)
		}
		if r.Err != nil {
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		if in.Title != "" {
			res.Video.Title = in.Title
		}
		return res, nil
	}
}

func (u Usecase) analyze(ctx context.Context, in Input) (Result, error) {
	video, cached, err := u.LoadTranscript(ctx, in)
	if err != nil {
		return Result{}, err
	}

	segs := transcript.Parse(video.Transcript)
	if len(segs) == 0 {
		return Result{}, fmt.Errorf("video %s: %w", in.VideoID, apperr.ErrNoTranscript)
	}

	found, err := u.Detect(ctx, segs)
	if err != nil {
		return Result{}, err
	}
	u.d.Logger.Info("analysis complete",
		"video", in.VideoID,
		"segments", len(segs),
		"fallacies", len(found),
		"cached", cached,
	)
	return Result{Video: video, Segments: segs, Fallacies: found, Cached: cached}, nil
}

// LoadTranscript serves the formatted transcript from cache while fresh and
// fetches (then stores) it otherwise. Cache failures degrade to a fetch.
func (u Usecase) LoadTranscript(ctx context.Context, in Input) (types.VideoData, bool, error) {
	if v, ok, err := u.d.Cache.Get(ctx, in.VideoID); err != nil {
		u.d.Logger.Warn("cache read failed", "video", in.VideoID, "error", err)
	} else if ok {
		return v, true, nil
	}

	text, err := u.d.Transcripts.Fetch(ctx, in.VideoID)
	if err != nil {
		return types.VideoData{}, false, fmt.Errorf("fetch transcript: %w", err)
	}

	title := in.Title
	if title == "" {
		title = in.VideoID
	}
	v := types.VideoData{
		VideoID:    in.VideoID,
		Title:      title,
		Transcript: text,
		FetchedAt:  u.d.Now().UTC(),
	}
	if err := u.d.Cache.Put(ctx, in.VideoID, v, u.d.CacheTTL); err != nil {
		u.d.Logger.Warn("cache write failed", "video", in.VideoID, "error", err)
	}
	return v, false, nil
}

// Detect asks the model for fallacies in segs. An empty or unreadable
// completion is not an error.
func (u Usecase) Detect(ctx context.Context, segs []types.Segment) ([]types.Fallacy, error) {
	completion, err := u.d.LLM.Complete(ctx, fallacies.SystemPrompt, fallacies.BuildUserPrompt(segs))
	if err != nil {
		return nil, fmt.Errorf("detect fallacies: %w", err)
	}
	return fallacies.Parse(completion, segs, u.d.NewID), nil
}
