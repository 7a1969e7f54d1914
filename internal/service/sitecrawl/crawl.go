// Package sitecrawl bootstraps an FAQ sheet from a school website: it crawls pages
// under a base URL, extracts their text and collects question/answer candidates.
package sitecrawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; CampusChatBot/1.0)"
	maxPageBytes     = 2 << 20
)

// Config controls a crawl.
type Config struct {
	StartURL     string
	MaxPages     int
	Delay        time.Duration
	IgnoreRobots bool
	UserAgent    string
	HTTPClient   *http.Client
}

// Page is one fetched HTML page.
type Page struct {
	URL      string
	Language string
	Blocks   []string
}

// Result is everything a crawl collected, in visit order.
type Result struct {
	Pages      []Page
	Candidates []Candidate
}

// Blocks returns the text blocks of every page, concatenated.
func (r Result) Blocks() []string {
	var all []string
	for _, page := range r.Pages {
		all = append(all, page.Blocks...)
	}
	return all
}

// Crawler walks a site breadth first, staying under the start URL.
type Crawler struct {
	cfg    Config
	base   *url.URL
	domain string
	client *http.Client
	robots *robotstxt.RobotsData
}

// New validates cfg and prepares a crawler.
func New(cfg Config) (*Crawler, error) {
	start := strings.TrimRight(strings.TrimSpace(cfg.StartURL), "/")
	if start == "" {
		return nil, errors.New("start URL is required")
	}
	if !strings.Contains(start, "://") {
		start = "https://" + start
	}
	base, err := url.Parse(start)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", cfg.StartURL)
	}
	cfg.StartURL = start

	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 15
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Crawler{
		cfg:    cfg,
		base:   base,
		domain: registeredDomain(base.Hostname()),
		client: client,
	}, nil
}

// Run crawls until MaxPages HTML pages were fetched or no links are left.
// Unreachable or non-HTML pages are skipped.
func (c *Crawler) Run(ctx context.Context) (Result, error) {
	if !c.cfg.IgnoreRobots {
		c.robots = c.loadRobots(ctx)
	}

	var result Result
	seen := make(map[string]bool)
	queue := []string{canonicalURL(c.base)}

	for len(queue) > 0 && len(result.Pages) < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		target := queue[0]
		queue = queue[1:]
		if seen[target] {
			continue
		}
		seen[target] = true

		if !c.allowed(target) {
			log.Printf("[crawl] robots.txt disallows %s", target)
			continue
		}

		doc, err := c.fetch(ctx, target)
		if err != nil {
			log.Printf("[crawl] skip %s: %v", target, err)
			continue
		}

		blocks := ExtractBlocks(doc)
		page := Page{URL: target, Blocks: blocks}
		if len(blocks) > 0 {
			page.Language = string(GuessLanguage(strings.Join(blocks, " ")))
		}
		result.Pages = append(result.Pages, page)

		for _, pair := range FindPairs(blocks) {
			result.Candidates = append(result.Candidates, Candidate{
				Question:  pair.Question,
				Answer:    pair.Answer,
				Language:  GuessLanguage(pair.Question + " " + pair.Answer),
				SourceURL: target,
			})
		}
		log.Printf("[crawl] %s: blocks=%d language=%s", target, len(blocks), page.Language)

		pageURL, _ := url.Parse(target)
		for _, link := range ExtractLinks(doc, pageURL) {
			if u, err := url.Parse(link); err == nil {
				link = canonicalURL(u)
			}
			if !seen[link] && c.inScope(link) {
				queue = append(queue, link)
			}
		}

		if c.cfg.Delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(c.cfg.Delay):
			}
		}
	}

	return result, nil
}

func (c *Crawler) fetch(ctx context.Context, target string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("not HTML (%s)", ct)
	}

	return html.Parse(io.LimitReader(resp.Body, maxPageBytes))
}

// loadRobots returns nil when robots.txt cannot be read, which allows everything.
func (c *Crawler) loadRobots(ctx context.Context) *robotstxt.RobotsData {
	robotsURL := c.base.Scheme + "://" + c.base.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[crawl] robots.txt unreachable, crawling without it: %v", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		log.Printf("[crawl] robots.txt unreadable, crawling without it: %v", err)
		return nil
	}
	return robots
}

func (c *Crawler) allowed(target string) bool {
	if c.robots == nil {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return c.robots.TestAgent(path, c.cfg.UserAgent)
}

// inScope keeps the crawl on the start site: same registered domain and under the
// start URL.
func (c *Crawler) inScope(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if registeredDomain(u.Hostname()) != c.domain {
		return false
	}
	return strings.HasPrefix(link, c.cfg.StartURL)
}

// canonicalURL gives an empty path as "/" so the site root has one spelling.
func canonicalURL(u *url.URL) string {
	c := *u
	if c.Path == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func registeredDomain(host string) string {
	host = strings.ToLower(host)
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
