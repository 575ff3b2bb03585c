// Package compliance inspects crawl-permission policies per site.
package compliance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Config controls Checker behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Checker implements scrape.ComplianceChecker against robots.txt.
// Absence of the policy document and fetch failures are fail-open:
// crawling proceeds with the reason recorded on the verdict.
type Checker struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	logger    *zap.Logger
}

// New builds a Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "skyscraper-bot/1.0"
	}
	return &Checker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Check derives the policy document URL from the target's scheme and host
// and issues an allow/deny verdict. It never retries.
func (c *Checker) Check(ctx context.Context, rawURL string) scrape.ComplianceVerdict {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return scrape.ComplianceVerdict{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid target URL %q", rawURL),
		}
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)
	data, err := c.load(ctx, parsed.Host, robotsURL)
	if err != nil {
		c.logger.Warn("policy fetch failed; allowing access",
			zap.String("host", parsed.Host),
			zap.Error(err),
		)
		return scrape.ComplianceVerdict{
			Allowed: true,
			Reason:  fmt.Sprintf("policy unavailable (%v); proceeding", err),
		}
	}

	group := data.FindGroup(c.userAgent)
	if group == nil {
		return scrape.ComplianceVerdict{
			Allowed:      true,
			Reason:       "no matching policy group",
			PolicySource: robotsURL,
		}
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if !group.Test(path) {
		return scrape.ComplianceVerdict{
			Allowed:      false,
			Reason:       fmt.Sprintf("policy disallows %s", path),
			PolicySource: robotsURL,
		}
	}
	return scrape.ComplianceVerdict{
		Allowed:      true,
		Reason:       "policy permits crawling",
		PolicySource: robotsURL,
	}
}

func (c *Checker) load(ctx context.Context, host, robotsURL string) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(host)
	if cached, ok := c.cache.Load(hostKey); ok {
		data, assertOK := cached.(*robotstxt.RobotsData)
		if !assertOK {
			return nil, fmt.Errorf("policy cache type mismatch: %T", cached)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new policy request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch policy: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("failed to close policy response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read policy body: %w", err)
	}
	// A server error is a fetch failure, not a policy statement.
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("policy server error: status %d", resp.StatusCode)
	}
	// FromStatusAndBytes treats 4xx (absent document) as allow-all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	c.cache.Store(hostKey, data)
	return data, nil
}
