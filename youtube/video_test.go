package youtube

import (
	"testing"
	"time"
)

func TestVideo_PublishTime(t *testing.T) {
	tests := []struct {
		name   string
		video  Video
		want   time.Time
		wantOK bool
	}{
		{
			name:   "scheduled wins",
			video:  Video{PublishAt: "2024-05-02T18:00:00Z", PublishedAt: "2024-05-01T10:00:00Z"},
			want:   time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "published fallback",
			video:  Video{PublishedAt: "2024-05-01T10:00:00Z"},
			want:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "offset",
			video:  Video{PublishedAt: "2024-05-01T23:30:00-02:00"},
			want:   time.Date(2024, 5, 2, 1, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{name: "none", video: Video{}},
		{name: "garbage", video: Video{PublishedAt: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.video.PublishTime()
			if ok != tt.wantOK {
				t.Fatalf("PublishTime() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("PublishTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideo_SourceLanguage(t *testing.T) {
	if got := (Video{DefaultLanguage: "en"}).SourceLanguage("fr"); got != "en" {
		t.Errorf("SourceLanguage() = %q, want en", got)
	}
	if got := (Video{}).SourceLanguage("fr"); got != "fr" {
		t.Errorf("SourceLanguage() = %q, want fr", got)
	}
}

func TestVideo_HasLocalizations(t *testing.T) {
	if (Video{}).HasLocalizations() {
		t.Error("HasLocalizations() = true for empty video")
	}
	v := Video{Localizations: map[string]Localization{"en": {Title: "Hi"}}}
	if !v.HasLocalizations() {
		t.Error("HasLocalizations() = false, want true")
	}
}
