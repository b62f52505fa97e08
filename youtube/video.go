package youtube

import (
	"time"

	yt "google.golang.org/api/youtube/v3"
)

// Localization is a translated title and description.
type Localization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Video is the subset of a YouTube video resource the localizer reads.
type Video struct {
	ID              string
	Title           string
	Description     string
	CategoryID      string
	Tags            []string
	DefaultLanguage string

	// PublishAt is the scheduled publication time of a private video.
	PublishAt string
	// PublishedAt is when the video was uploaded or published.
	PublishedAt string

	Localizations map[string]Localization
}

// SourceLanguage returns the video's default language, or fallback when the
// video has none.
func (v Video) SourceLanguage(fallback string) string {
	if v.DefaultLanguage != "" {
		return v.DefaultLanguage
	}
	return fallback
}

// PublishTime returns status.publishAt if set, otherwise snippet.publishedAt.
func (v Video) PublishTime() (time.Time, bool) {
	s := v.PublishAt
	if s == "" {
		s = v.PublishedAt
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HasLocalizations reports whether any localization exists.
func (v Video) HasLocalizations() bool {
	return len(v.Localizations) > 0
}

func fromAPI(item *yt.Video) Video {
	v := Video{ID: item.Id}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.CategoryID = s.CategoryId
		v.Tags = s.Tags
		v.DefaultLanguage = s.DefaultLanguage
		v.PublishedAt = s.PublishedAt
	}
	if item.Status != nil {
		v.PublishAt = item.Status.PublishAt
	}
	if len(item.Localizations) > 0 {
		v.Localizations = make(map[string]Localization, len(item.Localizations))
		for lang, l := range item.Localizations {
			v.Localizations[lang] = Localization{Title: l.Title, Description: l.Description}
		}
	}
	return v
}

// Update is a localization write for one video.
type Update struct {
	Video Video
	// Localizations replaces the video's localizations.
	Localizations map[string]Localization
	// DefaultLanguage is written to the snippet when the video has none.
	DefaultLanguage string
}

// SetsSnippet reports whether the update also writes the snippet.
func (u Update) SetsSnippet() bool {
	return u.Video.DefaultLanguage == "" && u.DefaultLanguage != ""
}

// body builds the videos.update request and its parts. Only writable
// snippet fields are sent; read-only fields would be rejected.
func (u Update) body() ([]string, *yt.Video) {
	parts := []string{"localizations"}
	body := &yt.Video{
		Id:            u.Video.ID,
		Localizations: make(map[string]yt.VideoLocalization, len(u.Localizations)),
	}
	for lang, l := range u.Localizations {
		body.Localizations[lang] = yt.VideoLocalization{Title: l.Title, Description: l.Description}
	}

	if u.SetsSnippet() {
		snippet := &yt.VideoSnippet{
			Title:           u.Video.Title,
			Description:     u.Video.Description,
			CategoryId:      u.Video.CategoryID,
			DefaultLanguage: u.DefaultLanguage,
		}
		if len(u.Video.Tags) > 0 {
			snippet.Tags = u.Video.Tags
		}
		body.Snippet = snippet
		parts = append(parts, "snippet")
	}
	return parts, body
}
