// Package scraper extracts a preview image URL from an article page.
package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lunalism/techisy/pkg/logger"
)

// DefaultTimeout bounds one page fetch. Image lookup is best-effort:
// any failure yields an empty result, never an error.
const DefaultTimeout = 5 * time.Second

const userAgent = "Mozilla/5.0 (compatible; Techisy/1.0)"

// ImageScraper resolves a representative image for an article URL.
// The ingestion pipeline treats it as a black box with its own timeout.
type ImageScraper interface {
	ScrapeImage(ctx context.Context, pageURL string) string
}

// OGScraper reads Open Graph and Twitter card meta tags.
type OGScraper struct {
	client *http.Client
	log    *logger.Logger
}

// New creates an OGScraper with the given timeout. A zero or negative
// timeout falls back to DefaultTimeout.
func New(timeout time.Duration, log *logger.Logger) *OGScraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OGScraper{
		client: &http.Client{Timeout: timeout},
		log:    log.WithComponent("scraper"),
	}
}

// ScrapeImage returns the page's og:image (falling back to twitter:image
// and twitter:image:src), or "" when no usable image is found. It never
// returns an error: a missing image only means the article renders
// without a thumbnail.
func (s *OGScraper) ScrapeImage(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug().Err(err).Str("url", pageURL).Msg("Image scrape failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	imageURL, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	if imageURL == "" {
		imageURL, _ = doc.Find(`meta[name="twitter:image"]`).Attr("content")
	}
	if imageURL == "" {
		imageURL, _ = doc.Find(`meta[name="twitter:image:src"]`).Attr("content")
	}
	if imageURL == "" {
		return ""
	}

	// Resolve relative image paths against the page origin.
	if strings.HasPrefix(imageURL, "/") {
		page, err := url.Parse(pageURL)
		if err != nil {
			return ""
		}
		imageURL = page.Scheme + "://" + page.Host + imageURL
	}

	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return ""
	}
	return imageURL
}

var _ ImageScraper = (*OGScraper)(nil)
