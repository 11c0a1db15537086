package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// proxiedDomains are image CDNs that block anonymous cross-origin reads.
// The web client rewrites these through /api/proxy-image, and the report
// pipeline fetches them with the same client so both surfaces behave
// identically. Subdomains match.
var proxiedDomains = []string{
	"digitaloceanspaces.com",
	"onepiece-cardgame.com",
	"dotgg.gg",
	"pinimg.com",
	"assets.pokemon.com",
	"limitlesstcg.com",
	"tcgplayer-cdn.com",
}

const (
	// maxProxyImageBytes caps a single relayed image (card scans are well
	// under this even at print resolution)
	maxProxyImageBytes = 20 << 20

	proxyFetchTimeout = 15 * time.Second
)

// ImageProxyService relays card images from allow-listed CDNs and serves as
// the shared fetch path for the report image materializer.
type ImageProxyService struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewImageProxyService creates a new image proxy service
func NewImageProxyService() *ImageProxyService {
	return &ImageProxyService{
		client: &http.Client{
			Timeout: proxyFetchTimeout,
		},
		// Card lists are small; a gentle ceiling keeps us polite to the CDNs
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// IsProxiedHost reports whether the URL's host is on the CDN allow-list
// (exact domain or any subdomain).
func IsProxiedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range proxiedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Fetch downloads an image from an allow-listed URL and returns the raw
// bytes plus the upstream content type.
func (s *ImageProxyService) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("invalid image url")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	// Some card CDNs reject requests without browser-like headers
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxProxyImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxProxyImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}
