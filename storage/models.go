package storage

import "time"

// RunMode is how the videos of a run were selected.
type RunMode string

const (
	// ModeAuto selects today's videos that have no localizations.
	ModeAuto RunMode = "auto"
	// ModeVideos processes an explicit list of video IDs.
	ModeVideos RunMode = "videos"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run records one invocation of the localizer.
type Run struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Mode is how videos were selected.
	Mode RunMode `json:"mode"`
	// Status is the current state of the run.
	Status RunStatus `json:"status"`
	// DryRun is set when no update was sent to YouTube.
	DryRun bool `json:"dry_run,omitempty"`
	// TargetLanguages are the languages the run attempted.
	TargetLanguages []string `json:"target_languages"`
	// Videos holds one result per processed video.
	Videos []VideoResult `json:"videos"`
	// Error is set when the run failed before processing videos.
	Error string `json:"error,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finish marks the run as done with the given status.
func (r *Run) Finish(status RunStatus, err error) {
	now := time.Now()
	r.Status = status
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or has taken so far.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Updated counts the videos whose localizations were written.
func (r *Run) Updated() int {
	n := 0
	for _, v := range r.Videos {
		if v.Updated {
			n++
		}
	}
	return n
}

// VideoResult is the outcome of localizing one video.
type VideoResult struct {
	// RunID is the run this result belongs to.
	RunID string `json:"run_id,omitempty"`
	// VideoID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	VideoID string `json:"video_id"`
	// Title is the original video title.
	Title string `json:"title"`
	// SourceLanguage is the language translated from.
	SourceLanguage string `json:"source_language"`
	// Languages holds one entry per language translated.
	Languages []LanguageResult `json:"languages,omitempty"`
	// Updated is set when the localizations were written to YouTube.
	Updated bool `json:"updated"`
	// DefaultLanguageSet is set when the update also wrote snippet.defaultLanguage.
	DefaultLanguageSet bool `json:"default_language_set,omitempty"`
	// Skipped explains why the video was not processed, if it wasn't.
	Skipped string `json:"skipped,omitempty"`
	// Error is the update error, if any.
	Error string `json:"error,omitempty"`
	// ProcessedAt is when processing of the video finished.
	ProcessedAt time.Time `json:"processed_at"`
}

// Fallbacks sums chunk fallbacks across languages.
func (v VideoResult) Fallbacks() int {
	n := 0
	for _, l := range v.Languages {
		n += l.Fallbacks
	}
	return n
}

// LanguageResult records how a translation into one language went.
type LanguageResult struct {
	// Language is the target language code.
	Language string `json:"language"`
	// Requests is the number of chunks sent to the translation provider.
	Requests int `json:"requests"`
	// Fallbacks is the number of chunks kept untranslated after a failure.
	Fallbacks int `json:"fallbacks"`
	// RateLimited is the subset of Fallbacks caused by rate limiting.
	RateLimited int `json:"rate_limited,omitempty"`
	// Unchanged is set when the translated title and description equal the
	// originals, which usually means every request fell back.
	Unchanged bool `json:"unchanged,omitempty"`
}
