// Package youtube wraps the YouTube Data API v3 calls used for channel
// resolution and latest-upload lookups.
//
// Every call goes through a token-bucket limiter and a circuit breaker. The
// client never retries; a failed call surfaces as an error and the caller
// decides what "unresolved" means.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/resilience/circuitbreaker"
	"chanwatch/pkg/config"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

var (
	// ErrNoCredentials is returned by every lookup when no API key is configured.
	ErrNoCredentials = errors.New("youtube: no API key configured")

	// ErrNoResults is returned when the API answered successfully with no items.
	ErrNoResults = errors.New("youtube: empty result set")
)

// MaxPlaylistPage is the largest page the playlistItems endpoint returns.
const MaxPlaylistPage = 50

// Config configures the API client.
type Config struct {
	APIKey string
	// Endpoint overrides the API base URL (proxies, tests). Empty means the
	// library default.
	Endpoint string
	// RequestsPerSecond and Burst bound outgoing quota usage.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a keyless configuration with conservative limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// ConfigFromEnv reads YOUTUBE_API_KEY, YOUTUBE_API_ENDPOINT, YOUTUBE_API_RPS
// and YOUTUBE_API_BURST.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		APIKey:            strings.TrimSpace(config.GetEnvString("YOUTUBE_API_KEY", "")),
		Endpoint:          config.GetEnvString("YOUTUBE_API_ENDPOINT", ""),
		RequestsPerSecond: config.GetEnvFloat("YOUTUBE_API_RPS", def.RequestsPerSecond),
		Burst:             config.GetEnvInt("YOUTUBE_API_BURST", def.Burst),
	}
}

// Client is a rate limited, circuit broken YouTube Data API client.
// The zero value of a keyless client is usable: every method returns
// ErrNoCredentials without touching the network.
type Client struct {
	svc     *yt.Service
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// New builds a client. A missing API key is not an error; the returned
// client reports Configured() == false.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		slog.Warn("YOUTUBE_API_KEY not set, channel id lookups and latest uploads are disabled")
		return &Client{}, nil
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube.NewService: %w", err)
	}

	cbCfg := circuitbreaker.YouTubeAPIConfig()
	// 404 is an answer, not an outage
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNoResults) || statusCode(err) == http.StatusNotFound
	}

	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: circuitbreaker.New(cbCfg),
	}, nil
}

// Configured reports whether lookups can be attempted.
func (c *Client) Configured() bool {
	return c != nil && c.svc != nil
}

// ChannelIDByHandle searches channel-type results for "@handle" and returns
// the first hit's channel id.
func (c *Client) ChannelIDByHandle(ctx context.Context, handle string) (string, error) {
	return do(ctx, c, "search.list", func(ctx context.Context) (string, error) {
		resp, err := c.svc.Search.List([]string{"snippet"}).
			Q("@" + handle).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.ChannelId == "" {
			return "", ErrNoResults
		}
		return resp.Items[0].Id.ChannelId, nil
	})
}

// ChannelIDByUsername maps a legacy /user/ name to a channel id.
func (c *Client) ChannelIDByUsername(ctx context.Context, username string) (string, error) {
	return do(ctx, c, "channels.list", func(ctx context.Context) (string, error) {
		resp, err := c.svc.Channels.List([]string{"id"}).
			ForUsername(username).
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == "" {
			return "", ErrNoResults
		}
		return resp.Items[0].Id, nil
	})
}

// UploadsPlaylistID returns the id of the channel's default uploads list.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	return do(ctx, c, "channels.list", func(ctx context.Context) (string, error) {
		resp, err := c.svc.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		if len(resp.Items) == 0 {
			return "", ErrNoResults
		}
		cd := resp.Items[0].ContentDetails
		if cd == nil || cd.RelatedPlaylists == nil || cd.RelatedPlaylists.Uploads == "" {
			return "", ErrNoResults
		}
		return cd.RelatedPlaylists.Uploads, nil
	})
}

// PlaylistItemIDs returns up to max video ids from the first page of the
// playlist, most recent first. Later pages are never requested.
func (c *Client) PlaylistItemIDs(ctx context.Context, playlistID string, max int64) ([]string, error) {
	if max <= 0 || max > MaxPlaylistPage {
		max = MaxPlaylistPage
	}
	return do(ctx, c, "playlistItems.list", func(ctx context.Context) ([]string, error) {
		resp, err := c.svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(max).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			ids = append(ids, item.ContentDetails.VideoId)
		}
		if len(ids) == 0 {
			return nil, ErrNoResults
		}
		return ids, nil
	})
}

// Video returns title, view count and the raw duration token of one item.
func (c *Client) Video(ctx context.Context, videoID string) (*entity.VideoDetails, error) {
	return do(ctx, c, "videos.list", func(ctx context.Context) (*entity.VideoDetails, error) {
		resp, err := c.svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			return nil, ErrNoResults
		}
		v := resp.Items[0]
		d := &entity.VideoDetails{ItemID: videoID}
		if v.Id != "" {
			d.ItemID = v.Id
		}
		if v.Snippet != nil {
			d.Title = v.Snippet.Title
		}
		if v.Statistics != nil {
			d.ViewCount = int64(v.Statistics.ViewCount)
		}
		if v.ContentDetails != nil {
			d.Duration = v.ContentDetails.Duration
		}
		return d, nil
	})
}

// do runs one API call behind the limiter and breaker and records metrics.
func do[T any](ctx context.Context, c *Client, method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !c.Configured() {
		return zero, ErrNoCredentials
	}
	if err := c.limiter.Wait(ctx); err != nil {
		apiRequestsTotal.WithLabelValues(method, "rate_limited").Inc()
		return zero, fmt.Errorf("%s: rate limit: %w", method, err)
	}

	start := time.Now()
	res, err := circuitbreaker.Run(c.breaker, func() (T, error) {
		return fn(ctx)
	})
	apiRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	apiRequestsTotal.WithLabelValues(method, resultLabel(err)).Inc()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoResults):
		return "empty"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "error"
	}
}

func statusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}
