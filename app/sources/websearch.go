package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var _ Strategy = (*DuckDuckGoStrategy)(nil)

// DuckDuckGoStrategy scrapes the HTML results page of the lite endpoint.
// It is the fallback of last resort for sources without a usable feed;
// results carry no publication timestamps.
type DuckDuckGoStrategy struct {
	httpClient *http.Client
	userAgent  string
	siteFilter string
	maxResults int
}

func NewDuckDuckGoStrategy(httpClient *http.Client, userAgent string, siteFilter string) *DuckDuckGoStrategy {
	return &DuckDuckGoStrategy{
		httpClient: httpClient,
		userAgent:  userAgent,
		siteFilter: siteFilter,
		maxResults: 25,
	}
}

func (s *DuckDuckGoStrategy) Name() string {
	if s.siteFilter != "" {
		return "duckduckgo:" + s.siteFilter
	}
	return "duckduckgo"
}

func (s *DuckDuckGoStrategy) Fetch(ctx context.Context, query Query) ([]RawItem, error) {
	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(scopedSearchTerms(query, s.siteFilter))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var items []RawItem
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		anchor := sel.Find("a.result__a").First()
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")
		link := resolveResultURL(href)
		if title == "" || link == "" {
			return true
		}

		items = append(items, RawItem{
			Title: title,
			Body:  strings.TrimSpace(sel.Find(".result__snippet").Text()),
			URL:   link,
		})
		return len(items) < s.maxResults
	})

	return items, nil
}

// resolveResultURL unwraps the uddg redirect DuckDuckGo puts around
// result links.
func resolveResultURL(href string) string {
	if href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
