// Package youtube reads and updates video metadata through the YouTube Data
// API v3.
package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ytlocalize/internal/retry"
)

// maxBatch is the page size and the id batch size accepted by the API.
const maxBatch = 50

var videoParts = []string{"snippet", "localizations", "contentDetails", "status"}

// Options configures a Service.
type Options struct {
	// HTTPClient carries OAuth credentials. It is required.
	HTTPClient *http.Client

	// Endpoint overrides the API base URL.
	Endpoint string

	// Retry configures retries of rate-limited and 5xx calls.
	// Nil uses DefaultRetryConfig.
	Retry *retry.Config

	Logger *slog.Logger
}

// DefaultRetryConfig returns the retry policy for Data API calls.
func DefaultRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 3
	return cfg
}

// Service wraps the Data API client.
type Service struct {
	api   *yt.Service
	retry retry.Config
	log   *slog.Logger
}

// NewService creates a Service.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("youtube: http client required")
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(opts.HTTPClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	api, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := DefaultRetryConfig()
	if opts.Retry != nil {
		cfg = *opts.Retry
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
			log.Warn("youtube call failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}
	}

	return &Service{api: api, retry: cfg, log: log}, nil
}

// do runs fn with retries and wraps the final error.
func (s *Service) do(ctx context.Context, op string, fn func(context.Context) error) error {
	err := retry.Do(ctx, s.retry, apiErrorClassifier, fn)
	if err != nil {
		return newAPIError(op, err)
	}
	return nil
}

// UploadsPlaylistID returns the uploads playlist of the authorized channel.
func (s *Service) UploadsPlaylistID(ctx context.Context) (string, error) {
	var playlistID string
	err := s.do(ctx, "channels.list", func(ctx context.Context) error {
		resp, err := s.api.Channels.List([]string{"contentDetails"}).
			Mine(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil ||
			resp.Items[0].ContentDetails.RelatedPlaylists == nil {
			return retry.Permanent(ErrNoChannel)
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", err
	}
	if playlistID == "" {
		return "", newAPIError("channels.list", ErrNoChannel)
	}
	return playlistID, nil
}

// PlaylistVideoIDs returns every video ID of a playlist, following pages.
func (s *Service) PlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		var next string
		err := s.do(ctx, "playlistItems.list", func(ctx context.Context) error {
			resp, err := s.api.PlaylistItems.List([]string{"contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(maxBatch).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			for _, item := range resp.Items {
				if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
					ids = append(ids, item.ContentDetails.VideoId)
				}
			}
			next = resp.NextPageToken
			return nil
		})
		if err != nil {
			return ids, err
		}

		// Stop if no more pages
		if next == "" {
			break
		}
		pageToken = next
	}

	s.log.Debug("listed playlist", "playlist", playlistID, "videos", len(ids))
	return ids, nil
}

// Videos fetches video details in batches. A batch that fails after retries
// is logged and skipped, so the result may be shorter than ids.
func (s *Service) Videos(ctx context.Context, ids []string) ([]Video, error) {
	var videos []Video
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		batch := ids[start:end]

		var items []*yt.Video
		err := s.do(ctx, "videos.list", func(ctx context.Context) error {
			resp, err := s.api.Videos.List(videoParts).
				Id(batch...).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			items = resp.Items
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return videos, ctx.Err()
			}
			s.log.Error("video batch failed, skipping", "first", start, "count", len(batch), "error", err)
			continue
		}

		for _, item := range items {
			videos = append(videos, fromAPI(item))
		}
	}
	return videos, nil
}

// Video fetches a single video.
func (s *Service) Video(ctx context.Context, id string) (Video, error) {
	videos, err := s.Videos(ctx, []string{id})
	if err != nil {
		return Video{}, err
	}
	if len(videos) == 0 {
		return Video{}, newAPIError("videos.list", fmt.Errorf("%w: video %s", ErrNotFound, id))
	}
	return videos[0], nil
}

// UpdateLocalizations writes the localizations of a video, and its
// snippet when the video has no default language yet.
func (s *Service) UpdateLocalizations(ctx context.Context, u Update) error {
	parts, body := u.body()
	return s.do(ctx, "videos.update", func(ctx context.Context) error {
		_, err := s.api.Videos.Update(parts, body).Context(ctx).Do()
		return err
	})
}
