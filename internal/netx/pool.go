// Package netx wraps outbound HTTP for venue adapters: bounded concurrency,
// retry with jittered backoff, per-host token buckets and per-venue circuit
// breakers. Adapters own their pool; pools are never shared across venues.
package netx

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// PoolConfig tunes one adapter's client pool.
type PoolConfig struct {
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string

	// InsecureHosts skip TLS verification. Reserved for venues with
	// broken CRL endpoints; keep the list short and documented.
	InsecureHosts []string
}

// Pool is a venue-scoped HTTP client with a concurrency semaphore.
type Pool struct {
	cfg       PoolConfig
	semaphore chan struct{}
	client    *http.Client
	insecure  *http.Client
	limiter   *HostLimiter
}

// NewPool builds a pool. Zero-valued config fields get safe defaults.
func NewPool(cfg PoolConfig, limiter *HostLimiter) *Pool {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 15 * time.Second
	}
	p := &Pool{
		cfg:       cfg,
		semaphore: make(chan struct{}, cfg.MaxConcurrency),
		client:    &http.Client{Timeout: cfg.RequestTimeout},
	}
	if len(cfg.InsecureHosts) > 0 {
		p.insecure = &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	p.limiter = limiter
	return p
}

// Do executes the request with semaphore, rate limit and retries. The caller
// owns the response body.
func (p *Pool) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, req.URL.Host); err != nil {
			return nil, err
		}
	}

	client := p.client
	if p.insecure != nil {
		for _, h := range p.cfg.InsecureHosts {
			if h == req.URL.Host {
				client = p.insecure
				break
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt)
			log.Debug().
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Str("host", req.URL.Host).
				Msg("retrying request")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if retryableStatus(resp.StatusCode) && attempt < p.cfg.MaxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func (p *Pool) backoff(attempt int) time.Duration {
	d := p.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
	if d > p.cfg.BackoffMax {
		d = p.cfg.BackoffMax
	}
	// 0-250ms jitter spreads retries from parallel workers
	return d + time.Duration(rand.Intn(250))*time.Millisecond
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
