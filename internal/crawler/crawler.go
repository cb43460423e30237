// Package crawler fetches reference pages and extracts their readable text.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Page is the outcome of crawling a single URL
type Page struct {
	URL      string
	Title    string
	Content  string
	Err      error
	Duration time.Duration
}

// Crawler fetches pages with a bounded worker pool
type Crawler struct {
	httpClient *http.Client
	maxSize    int64
	maxWords   int
	userAgent  string
	maxWorkers int
}

// NewCrawler creates a new crawler instance
func NewCrawler(timeout time.Duration, maxWorkers int, maxSize int64) *Crawler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Crawler{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxSize:    maxSize,
		maxWords:   300,
		userAgent:  "chat-widget/1.0",
		maxWorkers: maxWorkers,
	}
}

// Crawl fetches all URLs in parallel. Pages come back in input order.
func (c *Crawler) Crawl(ctx context.Context, urls []string) []Page {
	pages := make([]Page, len(urls))
	if len(urls) == 0 {
		return pages
	}

	jobs := make(chan int, len(urls))
	for i := range urls {
		jobs <- i
	}
	close(jobs)

	numWorkers := c.maxWorkers
	if len(urls) < numWorkers {
		numWorkers = len(urls)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				pages[idx] = c.crawlSingle(ctx, urls[idx])
			}
		}()
	}
	wg.Wait()

	return pages
}

func (c *Crawler) crawlSingle(ctx context.Context, urlStr string) Page {
	start := time.Now()
	title, text, err := c.fetch(ctx, urlStr)
	return Page{
		URL:      urlStr,
		Title:    title,
		Content:  text,
		Err:      err,
		Duration: time.Since(start),
	}
}

func (c *Crawler) fetch(ctx context.Context, urlStr string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", "", fmt.Errorf("non-HTML content type: %s", contentType)
	}

	body, err := ReadLimitedBody(resp.Body, c.maxSize)
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}

	title, text, err := ExtractText(body, c.maxWords)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract text: %w", err)
	}
	return title, text, nil
}
