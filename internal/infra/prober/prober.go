// Package prober checks whether a channel page is reachable and extracts a
// display name from it.
package prober

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/resilience/circuitbreaker"
	"chanwatch/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

const (
	notFoundMessage = "Channel not found (404)"
	skippedMessage  = "not probed: circuit breaker is open"
	notFoundMarker  = "not found"
	titleSuffix     = " - YouTube"

	// shortBodyLimit bounds the bodies scanned for notFoundMarker; real
	// channel pages are far larger and may mention the phrase anywhere.
	shortBodyLimit = 512
)

// Resolver maps a reference to a canonical channel id, best effort.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (string, bool)
}

// PageProber implements the two step reachability check: a HEAD existence
// check followed by a GET for name extraction.
//
// Thread safety: PageProber is safe for concurrent use.
type PageProber struct {
	client   *http.Client
	resolver Resolver
	config   Config

	// ホストごとのサーキットブレーカー
	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// New creates a PageProber. resolver may be nil, in which case probes never
// carry an external id.
func New(cfg Config, resolver Resolver) *PageProber {
	p := &PageProber{
		resolver: resolver,
		config:   cfg,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
	p.client = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= p.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), p.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return p
}

// breakerFor returns the circuit breaker of the reference's host (with
// port), creating it on first use.
func (p *PageProber) breakerFor(reference string) *circuitbreaker.CircuitBreaker {
	host := ""
	if u, err := url.Parse(reference); err == nil {
		host = strings.ToLower(u.Host)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[host]; ok {
		return cb
	}
	cbCfg := circuitbreaker.ChannelPageConfig()
	cbCfg.Name = cbCfg.Name + ":" + host
	// 4xx は相手の答え: サーキットを開く理由にならない
	cbCfg.IsSuccessful = func(err error) bool {
		var httpErr *retry.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode < 500
		}
		return err == nil
	}
	cb := circuitbreaker.New(cbCfg)
	p.breakers[host] = cb
	return cb
}

// page is what one request of a probe observed.
type page struct {
	body []byte
}

// Probe checks reference and never fails outward: every failure is
// reported through ProbeResult.Error with Accessible=false.
func (p *PageProber) Probe(ctx context.Context, reference string) entity.ProbeResult {
	logger := slog.With(slog.String("reference", reference))

	if err := validateURL(reference, p.config.DenyPrivateIPs); err != nil {
		metrics.RecordProbe("network_error")
		return entity.ProbeResult{Error: err.Error()}
	}

	head, err := p.fetch(ctx, http.MethodHead, reference)
	if res, done := p.classify(head, err); done {
		logger.Debug("channel page unreachable", slog.String("error", res.Error))
		return res
	}

	full, err := p.fetch(ctx, http.MethodGet, reference)
	if res, done := p.classify(full, err); done {
		logger.Debug("channel page unreachable", slog.String("error", res.Error))
		return res
	}

	res := entity.ProbeResult{
		Accessible:  true,
		DisplayName: entity.StringPtr(extractName(full.body, reference)),
	}
	if p.resolver != nil {
		if id, ok := p.resolver.Resolve(ctx, reference); ok {
			res.ExternalID = entity.StringPtr(id)
		}
	}
	metrics.RecordProbe("accessible")
	return res
}

// classify maps a request outcome to a final probe result. done is false
// when the page answered 2xx and probing should continue.
func (p *PageProber) classify(pg *page, err error) (entity.ProbeResult, bool) {
	var httpErr *retry.HTTPError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordProbe("skipped")
		return entity.ProbeResult{Skipped: true, Error: skippedMessage}, true
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == http.StatusNotFound {
			metrics.RecordProbe("not_found")
			return entity.ProbeResult{Error: notFoundMessage}, true
		}
		metrics.RecordProbe("http_error")
		return entity.ProbeResult{Error: fmt.Sprintf("HTTP %d", httpErr.StatusCode)}, true
	case err != nil:
		metrics.RecordProbe("network_error")
		return entity.ProbeResult{Error: err.Error()}, true
	}
	// 短いエラーページ本文のみ対象
	if len(pg.body) < shortBodyLimit && bytes.Contains(bytes.ToLower(pg.body), []byte(notFoundMarker)) {
		metrics.RecordProbe("not_found")
		return entity.ProbeResult{Error: notFoundMessage}, true
	}
	return entity.ProbeResult{}, false
}

// fetch issues one bounded request through the circuit breaker. Non-2xx
// answers are returned as *retry.HTTPError.
func (p *PageProber) fetch(ctx context.Context, method, reference string) (*page, error) {
	return circuitbreaker.Run(p.breakerFor(reference), func() (*page, error) {
		reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, method, reference, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		req.Header.Set("User-Agent", p.config.UserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := p.client.Do(req)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Err != nil {
				return nil, urlErr.Err
			}
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBodySize))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return &page{body: body}, nil
	})
}

// extractName picks a display name from the page: og:title first, then the
// <title> element without its " - YouTube" suffix, then the part of the
// reference after its last '@', then "Unknown".
func extractName(body []byte, reference string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			if og = strings.TrimSpace(og); og != "" {
				return og
			}
		}
		title := strings.TrimSpace(doc.Find("title").First().Text())
		if t := strings.TrimSpace(strings.TrimSuffix(title, titleSuffix)); t != "" {
			return t
		}
	}
	return fallbackName(reference)
}

func fallbackName(reference string) string {
	if i := strings.LastIndex(reference, "@"); i >= 0 && i+1 < len(reference) {
		return reference[i+1:]
	}
	return entity.UnknownName
}
