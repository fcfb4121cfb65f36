package contextfetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// contentSelectors are tried in order until one yields text. The div
// ids cover the common CMS and wiki layouts we scrape in practice.
var contentSelectors = []string{
	"article",
	"main",
	"div#bodyContent",
	"div#content",
	"div#main-content",
	"div#post-body",
	"div#app",
}

const (
	scrapeUserAgent   = "ragline/1.0"
	maxScrapedChars   = 20000
	defaultScrapeWait = 10 * time.Second
)

// Scraper downloads pages referenced in a prompt and extracts their
// readable text.
type Scraper struct {
	client  *http.Client
	maxURLs int
}

func NewScraper(cfg models.ScrapeConfig) *Scraper {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultScrapeWait
	}
	maxURLs := cfg.MaxURLs
	if maxURLs <= 0 {
		maxURLs = 3
	}
	return &Scraper{
		client:  &http.Client{Timeout: timeout},
		maxURLs: maxURLs,
	}
}

// ExtractURLs returns the http(s) URLs found in text, deduplicated,
// capped at the configured maximum.
func (s *Scraper) ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var urls []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
		if len(urls) == s.maxURLs {
			break
		}
	}
	return urls
}

// FetchURLContent scrapes every URL mentioned in the prompt and joins
// the extracted text. Pages that fail to download or parse are skipped.
func (s *Scraper) FetchURLContent(ctx context.Context, prompt string) string {
	urls := s.ExtractURLs(prompt)
	if len(urls) == 0 {
		return ""
	}

	results := make([]string, len(urls))
	var group errgroup.Group
	for i, u := range urls {
		group.Go(func() error {
			text, err := s.scrapeOne(ctx, u)
			if err != nil {
				// Failed pages are skipped, not fatal
				log.Warnf("scrape %s failed: %v", u, err)
				return nil
			}
			results[i] = text
			return nil
		})
	}
	_ = group.Wait()

	var parts []string
	for i, text := range results {
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Content from %s:\n%s", urls[i], text))
	}
	return strings.Join(parts, "\n\n")
}

func (s *Scraper) scrapeOne(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	return s.extractText(doc), nil
}

// extractText pulls paragraph text from the first matching content
// region, falling back to the whole body.
func (s *Scraper) extractText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		region := doc.Find(sel).First()
		if region.Length() == 0 {
			continue
		}
		if text := paragraphText(region); text != "" {
			return s.truncate(text)
		}
	}
	return s.truncate(paragraphText(doc.Find("body")))
}

func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

func (s *Scraper) truncate(text string) string {
	return utils.Truncate(text, maxScrapedChars)
}
