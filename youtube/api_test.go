package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/api/googleapi"

	"ytlocalize/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, r http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	cfg := retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		Sleep:          func(context.Context, time.Duration) error { return nil },
	}
	svc, err := NewService(context.Background(), Options{
		HTTPClient: server.Client(),
		Endpoint:   server.URL + "/",
		Retry:      &cfg,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s","errors":[{"reason":"%s","domain":"youtube"}]}}`, code, reason, reason)
}

func TestNewService_RequiresClient(t *testing.T) {
	if _, err := NewService(context.Background(), Options{}); err == nil {
		t.Error("NewService() without client should fail")
	}
}

func TestUploadsPlaylistID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/youtube/v3/channels", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("mine") != "true" {
			t.Errorf("mine = %q, want true", req.URL.Query().Get("mine"))
		}
		writeJSON(w, map[string]any{
			"items": []any{map[string]any{
				"id":             "UC123",
				"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU123"}},
			}},
		})
	})
	svc := newTestService(t, r)

	got, err := svc.UploadsPlaylistID(context.Background())
	if err != nil {
		t.Fatalf("UploadsPlaylistID() error = %v", err)
	}
	if got != "UU123" {
		t.Errorf("UploadsPlaylistID() = %q, want %q", got, "UU123")
	}
}

func TestUploadsPlaylistID_NoChannel(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/youtube/v3/channels", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"items": []any{}})
	})
	svc := newTestService(t, r)

	_, err := svc.UploadsPlaylistID(context.Background())
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("UploadsPlaylistID() error = %v, want ErrNoChannel", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestPlaylistVideoIDs_Pagination(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/youtube/v3/playlistItems", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("playlistId") != "UU123" {
			t.Errorf("playlistId = %q, want UU123", q.Get("playlistId"))
		}
		if q.Get("maxResults") != "50" {
			t.Errorf("maxResults = %q, want 50", q.Get("maxResults"))
		}
		item := func(id string) map[string]any {
			return map[string]any{"contentDetails": map[string]any{"videoId": id}}
		}
		switch q.Get("pageToken") {
		case "":
			writeJSON(w, map[string]any{"items": []any{item("a"), item("b")}, "nextPageToken": "p2"})
		case "p2":
			writeJSON(w, map[string]any{"items": []any{item("c")}})
		default:
			t.Errorf("unexpected pageToken %q", q.Get("pageToken"))
		}
	})
	svc := newTestService(t, r)

	ids, err := svc.PlaylistVideoIDs(context.Background(), "UU123")
	if err != nil {
		t.Fatalf("PlaylistVideoIDs() error = %v", err)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("PlaylistVideoIDs() = %v, want [a b c]", ids)
	}
}

func TestVideos_BatchesAndSkipsFailures(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		q := req.URL.Query()
		if got := strings.Join(q["part"], ","); got != "snippet,localizations,contentDetails,status" {
			t.Errorf("part = %q, want snippet,localizations,contentDetails,status", got)
		}
		ids := q["id"]
		if len(ids) == 1 {
			ids = strings.Split(ids[0], ",")
		}
		if len(ids) > maxBatch {
			t.Errorf("batch of %d ids, want <= %d", len(ids), maxBatch)
		}
		if ids[0] == "v50" {
			writeAPIError(w, http.StatusInternalServerError, "backendError")
			return
		}
		var items []any
		for _, id := range ids {
			items = append(items, map[string]any{
				"id":      id,
				"snippet": map[string]any{"title": "Titre " + id, "defaultLanguage": "fr"},
			})
		}
		writeJSON(w, map[string]any{"items": items})
	})
	svc := newTestService(t, r)

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%d", i)
	}

	videos, err := svc.Videos(context.Background(), ids)
	if err != nil {
		t.Fatalf("Videos() error = %v", err)
	}
	// Batch 2 (v50..v99) fails on every attempt and is skipped.
	if len(videos) != 70 {
		t.Errorf("Videos() returned %d videos, want 70", len(videos))
	}
	// 1 + 3 attempts + 1
	if calls.Load() != 5 {
		t.Errorf("calls = %d, want 5", calls.Load())
	}
	if videos[0].Title != "Titre v0" || videos[0].DefaultLanguage != "fr" {
		t.Errorf("videos[0] = %+v", videos[0])
	}
}

func TestVideo_NotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"items": []any{}})
	})
	svc := newTestService(t, r)

	_, err := svc.Video(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Video() error = %v, want ErrNotFound", err)
	}
}

func TestVideo_Fields(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id": "abc",
			"snippet": map[string]any{
				"title":       "Bonjour",
				"description": "Une vidéo",
				"categoryId":  "20",
				"tags":        []string{"beamng"},
				"publishedAt": "2024-05-01T10:00:00Z",
			},
			"status":        map[string]any{"publishAt": "2024-05-02T18:00:00Z"},
			"localizations": map[string]any{"en": map[string]any{"title": "Hello", "description": "A video"}},
		}}})
	})
	svc := newTestService(t, r)

	v, err := svc.Video(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Video() error = %v", err)
	}
	if v.CategoryID != "20" || len(v.Tags) != 1 || v.PublishAt != "2024-05-02T18:00:00Z" {
		t.Errorf("Video() = %+v", v)
	}
	if v.Localizations["en"].Title != "Hello" {
		t.Errorf("Localizations[en] = %+v, want Hello", v.Localizations["en"])
	}
}

func TestUpdateLocalizations(t *testing.T) {
	tests := []struct {
		name        string
		video       Video
		wantParts   []string
		wantSnippet bool
	}{
		{
			name:        "adds snippet when default language missing",
			video:       Video{ID: "abc", Title: "Bonjour", Description: "Desc", CategoryID: "20", Tags: []string{"t"}},
			wantParts:   []string{"localizations", "snippet"},
			wantSnippet: true,
		},
		{
			name:      "localizations only",
			video:     Video{ID: "abc", Title: "Bonjour", CategoryID: "20", DefaultLanguage: "fr"},
			wantParts: []string{"localizations"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				ID            string                  `json:"id"`
				Localizations map[string]Localization `json:"localizations"`
				Snippet       *struct {
					Title           string   `json:"title"`
					Description     string   `json:"description"`
					CategoryID      string   `json:"categoryId"`
					DefaultLanguage string   `json:"defaultLanguage"`
					Tags            []string `json:"tags"`
				} `json:"snippet"`
			}
			var parts []string

			r := chi.NewRouter()
			r.Put("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
				for _, p := range req.URL.Query()["part"] {
					parts = append(parts, strings.Split(p, ",")...)
				}
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					t.Errorf("decode body: %v", err)
				}
				writeJSON(w, map[string]any{"id": "abc"})
			})
			svc := newTestService(t, r)

			u := Update{
				Video:           tt.video,
				Localizations:   map[string]Localization{"en": {Title: "Hello", Description: "Desc"}},
				DefaultLanguage: "fr",
			}
			if u.SetsSnippet() != tt.wantSnippet {
				t.Errorf("SetsSnippet() = %v, want %v", u.SetsSnippet(), tt.wantSnippet)
			}
			if err := svc.UpdateLocalizations(context.Background(), u); err != nil {
				t.Fatalf("UpdateLocalizations() error = %v", err)
			}

			if strings.Join(parts, ",") != strings.Join(tt.wantParts, ",") {
				t.Errorf("parts = %v, want %v", parts, tt.wantParts)
			}
			if body.ID != "abc" || body.Localizations["en"].Title != "Hello" {
				t.Errorf("body = %+v", body)
			}
			if (body.Snippet != nil) != tt.wantSnippet {
				t.Fatalf("snippet sent = %v, want %v", body.Snippet != nil, tt.wantSnippet)
			}
			if tt.wantSnippet {
				s := body.Snippet
				if s.DefaultLanguage != "fr" || s.CategoryID != "20" || s.Title != "Bonjour" || len(s.Tags) != 1 {
					t.Errorf("snippet = %+v", s)
				}
			}
		})
	}
}

func TestUpdateLocalizations_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Put("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 3 {
			writeAPIError(w, http.StatusForbidden, "rateLimitExceeded")
			return
		}
		writeJSON(w, map[string]any{"id": "abc"})
	})
	svc := newTestService(t, r)

	err := svc.UpdateLocalizations(context.Background(), Update{
		Video:         Video{ID: "abc", DefaultLanguage: "fr"},
		Localizations: map[string]Localization{"en": {Title: "Hello"}},
	})
	if err != nil {
		t.Fatalf("UpdateLocalizations() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestUpdateLocalizations_QuotaExceeded(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Put("/youtube/v3/videos", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusForbidden, "quotaExceeded")
	})
	svc := newTestService(t, r)

	err := svc.UpdateLocalizations(context.Background(), Update{Video: Video{ID: "abc", DefaultLanguage: "fr"}})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("UpdateLocalizations() error = %v, want ErrQuotaExceeded", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("quota error should not match ErrRateLimited")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.Op != "videos.update" || apiErr.Code != http.StatusForbidden || apiErr.Reason != "quotaExceeded" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestAPIErrorClassifier(t *testing.T) {
	gerr := func(code int, reason string) error {
		e := &googleapi.Error{Code: code}
		if reason != "" {
			e.Errors = []googleapi.ErrorItem{{Reason: reason}}
		}
		return e
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", gerr(403, "rateLimitExceeded"), true},
		{"user rate limit", gerr(403, "userRateLimitExceeded"), true},
		{"quota", gerr(403, "quotaExceeded"), false},
		{"daily limit", gerr(403, "dailyLimitExceeded"), false},
		{"too many requests", gerr(429, ""), true},
		{"backend", gerr(500, "backendError"), true},
		{"unavailable", gerr(503, ""), true},
		{"bad request", gerr(400, "invalidValue"), false},
		{"forbidden", gerr(403, "forbidden"), false},
		{"not found", gerr(404, "videoNotFound"), false},
		{"transport", errors.New("connection reset"), true},
		{"permanent", retry.Permanent(errors.New("stop")), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorClassifier(tt.err); got != tt.want {
				t.Errorf("apiErrorClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		target error
		want   bool
	}{
		{"quota", &APIError{Code: 403, Reason: "quotaExceeded"}, ErrQuotaExceeded, true},
		{"rate limit reason", &APIError{Code: 403, Reason: "rateLimitExceeded"}, ErrRateLimited, true},
		{"429", &APIError{Code: 429}, ErrRateLimited, true},
		{"not found", &APIError{Code: 404, Reason: "videoNotFound"}, ErrNotFound, true},
		{"forbidden", &APIError{Code: 403, Reason: "forbidden"}, ErrForbidden, true},
		{"quota is not forbidden", &APIError{Code: 403, Reason: "quotaExceeded"}, ErrForbidden, false},
		{"500 is not quota", &APIError{Code: 500}, ErrQuotaExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.err.Err = errors.New("x")
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}
