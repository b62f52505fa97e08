// Package localize translates the title and description of YouTube videos
// into the configured languages and writes them back as localizations.
package localize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"ytlocalize/storage"
	"ytlocalize/translate"
	"ytlocalize/youtube"
)

// ErrNoTargetLanguages is returned by New when no language is configured.
var ErrNoTargetLanguages = errors.New("localize: no target languages")

// VideoService is the subset of youtube.Service used by the Localizer.
type VideoService interface {
	UploadsPlaylistID(ctx context.Context) (string, error)
	PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error)
	Videos(ctx context.Context, ids []string) ([]youtube.Video, error)
	UpdateLocalizations(ctx context.Context, u youtube.Update) error
}

// Translator translates text with passthrough accounting.
type Translator interface {
	TranslateDetailed(ctx context.Context, text, source, target string) translate.Result
}

// Override replaces any description whose trimmed text starts with Prefix
// by Replacement. An empty Prefix disables it.
type Override struct {
	Prefix      string
	Replacement string
}

// Apply returns the description to translate.
func (o Override) Apply(description string) string {
	if o.Prefix != "" && strings.HasPrefix(strings.TrimSpace(description), o.Prefix) {
		return o.Replacement
	}
	return description
}

// Options configures a Localizer.
type Options struct {
	Videos     VideoService
	Translator Translator

	// Store records run history. Nil disables history.
	Store storage.RunStore

	// TargetLanguages are translated in order.
	TargetLanguages []string

	// DefaultLanguage is the source language of videos without one, and is
	// written to their snippet on update.
	DefaultLanguage string

	Override Override

	// Force retranslates languages a video already has.
	Force bool

	// DryRun translates without updating videos.
	DryRun bool

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Localizer runs localization passes over videos. Videos are processed one
// at a time.
type Localizer struct {
	opts  Options
	log   *slog.Logger
	names display.Namer
}

// New creates a Localizer.
func New(opts Options) (*Localizer, error) {
	if opts.Videos == nil || opts.Translator == nil {
		return nil, fmt.Errorf("localize: video service and translator required")
	}
	if len(opts.TargetLanguages) == 0 {
		return nil, ErrNoTargetLanguages
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "fr"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Localizer{
		opts:  opts,
		log:   log,
		names: display.English.Languages(),
	}, nil
}

// Auto localizes the videos of the authorized channel that are published or
// scheduled today (UTC) and have no localizations yet.
func (l *Localizer) Auto(ctx context.Context) (*storage.Run, error) {
	run := l.startRun(ctx, storage.ModeAuto)

	videos, err := l.todaysVideos(ctx)
	if err != nil {
		return l.finishRun(ctx, run, err)
	}

	var pending []youtube.Video
	for _, v := range videos {
		if !v.HasLocalizations() {
			pending = append(pending, v)
		}
	}
	l.log.Info("selected videos", "today", len(videos), "pending", len(pending))

	l.processAll(ctx, run, pending)
	return l.finishRun(ctx, run, ctx.Err())
}

func (l *Localizer) todaysVideos(ctx context.Context) ([]youtube.Video, error) {
	playlistID, err := l.opts.Videos.UploadsPlaylistID(ctx)
	if err != nil {
		return nil, fmt.Errorf("find uploads playlist: %w", err)
	}
	ids, err := l.opts.Videos.PlaylistVideoIDs(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	if len(ids) == 0 {
		l.log.Info("no videos found")
		return nil, nil
	}
	videos, err := l.opts.Videos.Videos(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}

	today := l.opts.Now().UTC()
	l.log.Info("filtering videos", "date", today.Format(time.DateOnly), "uploads", len(videos))
	return PublishedOn(videos, today), nil
}

// Videos localizes the given videos regardless of publication date. IDs that
// cannot be fetched are recorded as skipped.
func (l *Localizer) Videos(ctx context.Context, ids []string) (*storage.Run, error) {
	run := l.startRun(ctx, storage.ModeVideos)

	videos, err := l.opts.Videos.Videos(ctx, ids)
	if err != nil {
		return l.finishRun(ctx, run, fmt.Errorf("fetch videos: %w", err))
	}
	byID := make(map[string]youtube.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	var found []youtube.Video
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			l.log.Warn("video not found", "video", id)
			run.Videos = append(run.Videos, storage.VideoResult{
				VideoID:     id,
				Skipped:     "not found",
				ProcessedAt: l.opts.Now(),
			})
			continue
		}
		found = append(found, v)
	}

	l.processAll(ctx, run, found)
	return l.finishRun(ctx, run, ctx.Err())
}

// PublishedOn returns the videos whose publish time falls on day's UTC date.
func PublishedOn(videos []youtube.Video, day time.Time) []youtube.Video {
	y, m, d := day.UTC().Date()
	var out []youtube.Video
	for _, v := range videos {
		t, ok := v.PublishTime()
		if !ok {
			continue
		}
		vy, vm, vd := t.UTC().Date()
		if vy == y && vm == m && vd == d {
			out = append(out, v)
		}
	}
	return out
}

func (l *Localizer) processAll(ctx context.Context, run *storage.Run, videos []youtube.Video) {
	if len(videos) == 0 {
		l.log.Info("no videos to translate")
		return
	}
	for i, v := range videos {
		if ctx.Err() != nil {
			return
		}
		l.log.Info("processing video", "index", i+1, "total", len(videos), "video", v.ID, "title", v.Title)
		run.Videos = append(run.Videos, l.Localize(ctx, v))
		l.saveRun(ctx, run)
	}
}

// Localize translates one video into every target language and updates it.
// Update failures are recorded in the result rather than returned.
func (l *Localizer) Localize(ctx context.Context, v youtube.Video) storage.VideoResult {
	source := v.SourceLanguage(l.opts.DefaultLanguage)
	res := storage.VideoResult{
		VideoID:        v.ID,
		Title:          v.Title,
		SourceLanguage: source,
	}
	log := l.log.With("video", v.ID)

	description := l.opts.Override.Apply(v.Description)
	if description != v.Description {
		log.Info("description replaced by override")
	}

	locs := make(map[string]youtube.Localization, len(v.Localizations)+len(l.opts.TargetLanguages))
	for lang, loc := range v.Localizations {
		locs[lang] = loc
	}

	for _, lang := range l.opts.TargetLanguages {
		if lang == source {
			continue
		}
		if _, exists := v.Localizations[lang]; exists && !l.opts.Force {
			log.Debug("language already present", "language", lang)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		log.Info("translating", "language", lang, "name", l.languageName(lang))
		title := l.opts.Translator.TranslateDetailed(ctx, v.Title, source, lang)
		desc := l.opts.Translator.TranslateDetailed(ctx, description, source, lang)

		lr := storage.LanguageResult{
			Language:    lang,
			Requests:    title.Requests + desc.Requests,
			Fallbacks:   title.Fallbacks + desc.Fallbacks,
			RateLimited: title.RateLimited + desc.RateLimited,
			Unchanged:   unchanged(v.Title, title.Text) && unchanged(description, desc.Text),
		}
		if lr.Fallbacks > 0 || lr.Unchanged {
			log.Warn("translation incomplete",
				"language", lang,
				"fallbacks", lr.Fallbacks,
				"rate_limited", lr.RateLimited,
				"unchanged", lr.Unchanged,
			)
		}
		res.Languages = append(res.Languages, lr)
		locs[lang] = youtube.Localization{Title: title.Text, Description: desc.Text}
	}

	res.ProcessedAt = l.opts.Now()

	if len(res.Languages) == 0 {
		res.Skipped = "no translations"
		log.Info("no translation generated")
		return res
	}

	update := youtube.Update{
		Video:           v,
		Localizations:   locs,
		DefaultLanguage: l.opts.DefaultLanguage,
	}
	if update.SetsSnippet() {
		log.Info("default language not set, adding it", "language", l.opts.DefaultLanguage)
	}
	if l.opts.DryRun {
		res.Skipped = "dry run"
		log.Info("dry run, update skipped", "languages", len(res.Languages))
		return res
	}

	if err := l.opts.Videos.UpdateLocalizations(ctx, update); err != nil {
		res.Error = err.Error()
		log.Error("update failed", "error", err)
		return res
	}
	res.Updated = true
	res.DefaultLanguageSet = update.SetsSnippet()
	log.Info("localizations updated", "languages", len(res.Languages), "fallbacks", res.Fallbacks())
	return res
}

// unchanged reports whether a non-trivial input came back as is, which
// usually means every request fell back.
func unchanged(in, out string) bool {
	return strings.TrimSpace(in) != "" && in == out
}

func (l *Localizer) languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := l.names.Name(tag); name != "" {
		return name
	}
	return code
}

func (l *Localizer) startRun(ctx context.Context, mode storage.RunMode) *storage.Run {
	run := &storage.Run{
		Mode:            mode,
		Status:          storage.StatusRunning,
		DryRun:          l.opts.DryRun,
		TargetLanguages: append([]string(nil), l.opts.TargetLanguages...),
		StartedAt:       l.opts.Now(),
	}
	if l.opts.Store != nil {
		if err := l.opts.Store.CreateRun(ctx, run); err != nil {
			l.log.Warn("could not record run", "error", err)
		}
	}
	return run
}

func (l *Localizer) saveRun(ctx context.Context, run *storage.Run) {
	if l.opts.Store == nil || run.ID == "" {
		return
	}
	// History is written even after cancellation.
	if err := l.opts.Store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		l.log.Warn("could not record run", "run", run.ID, "error", err)
	}
}

func (l *Localizer) finishRun(ctx context.Context, run *storage.Run, err error) (*storage.Run, error) {
	if err != nil {
		run.Finish(storage.StatusFailed, err)
	} else {
		run.Finish(storage.StatusCompleted, nil)
	}
	l.saveRun(ctx, run)
	l.log.Info("run finished",
		"run", run.ID,
		"status", run.Status,
		"videos", len(run.Videos),
		"updated", run.Updated(),
		"duration", run.Duration().Round(time.Millisecond),
	)
	return run, err
}
