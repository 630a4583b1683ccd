package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

var _ Strategy = (*FeedStrategy)(nil)

// FeedStrategy fetches an RSS/Atom feed built from the topic query and
// normalizes its entries. The URL builder decides which upstream the
// strategy talks to; the decorator lets a source post-process items
// (e.g. thumbnail derivation).
type FeedStrategy struct {
	name         string
	httpClient   *http.Client
	userAgent    string
	gofeedParser *gofeed.Parser
	buildURL     func(query Query) string
	decorate     func(item *RawItem)
}

func NewGoogleNewsStrategy(httpClient *http.Client, userAgent string, siteFilter string) *FeedStrategy {
	name := "google_news"
	if siteFilter != "" {
		name = "google_news:" + siteFilter
	}

	return &FeedStrategy{
		name:         name,
		httpClient:   httpClient,
		userAgent:    userAgent,
		gofeedParser: gofeed.NewParser(),
		buildURL: func(query Query) string {
			terms := scopedSearchTerms(query, siteFilter)
			return "https://news.google.com/rss/search?q=" + url.QueryEscape(terms) + "&hl=en-US&gl=US&ceid=US:en"
		},
	}
}

func NewBingNewsStrategy(httpClient *http.Client, userAgent string) *FeedStrategy {
	return &FeedStrategy{
		name:         "bing_news",
		httpClient:   httpClient,
		userAgent:    userAgent,
		gofeedParser: gofeed.NewParser(),
		buildURL: func(query Query) string {
			return "https://www.bing.com/news/search?q=" + url.QueryEscape(buildSearchTerms(query)) + "&format=rss"
		},
	}
}

func NewYouTubeStrategy(httpClient *http.Client, userAgent string) *FeedStrategy {
	return &FeedStrategy{
		name:         "youtube_feed",
		httpClient:   httpClient,
		userAgent:    userAgent,
		gofeedParser: gofeed.NewParser(),
		buildURL: func(query Query) string {
			terms := "site:youtube.com " + buildSearchTerms(query)
			return "https://news.google.com/rss/search?q=" + url.QueryEscape(terms) + "&hl=en-US&gl=US&ceid=US:en"
		},
		decorate: func(item *RawItem) {
			if item.ImageURL == "" {
				item.ImageURL = youtubeThumbnail(item.URL)
			}
		},
	}
}

func (s *FeedStrategy) Name() string {
	return s.name
}

func (s *FeedStrategy) Fetch(ctx context.Context, query Query) ([]RawItem, error) {
	data, err := s.fetch(ctx, s.buildURL(query))
	if err != nil {
		return nil, err
	}

	parsed, err := s.gofeedParser.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]RawItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil || entry.Title == "" {
			continue
		}
		item := s.normalizeEntry(entry)
		if s.decorate != nil {
			s.decorate(&item)
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *FeedStrategy) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (s *FeedStrategy) normalizeEntry(entry *gofeed.Item) RawItem {
	item := RawItem{
		Title: strings.TrimSpace(entry.Title),
		Body:  stripHTML(entry.Description),
		URL:   strings.TrimSpace(entry.Link),
	}

	if entry.PublishedParsed != nil {
		published := entry.PublishedParsed.UTC()
		item.PublishedAt = &published
	}

	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		item.Author = strings.TrimSpace(entry.Authors[0].Name)
	}

	if entry.Image != nil && entry.Image.URL != "" {
		item.ImageURL = entry.Image.URL
	} else {
		item.ImageURL = firstImageURL(entry.Description)
	}

	return item
}

// buildSearchTerms prefers explicit keywords over the topic name so a
// broadly-named topic still produces a focused query.
func buildSearchTerms(query Query) string {
	if len(query.Keywords) > 0 {
		return strings.Join(query.Keywords, " OR ")
	}
	return query.TopicName
}

// scopedSearchTerms narrows a query to one site. Profile handles only
// apply inside a site scope, where they name accounts on that platform.
func scopedSearchTerms(query Query, site string) string {
	terms := buildSearchTerms(query)
	if site == "" {
		return terms
	}
	if len(query.Profiles) > 0 {
		terms = terms + " " + strings.Join(query.Profiles, " ")
	}
	return "site:" + site + " " + terms
}

// stripHTML flattens snippet markup into plain text.
func stripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

// firstImageURL pulls the first <img src> out of an HTML snippet.
func firstImageURL(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img").First().Attr("src")
	return src
}

var youtubeVideoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/|/shorts/)([A-Za-z0-9_-]{11})`)

// youtubeThumbnail derives a stable thumbnail URL from a video link.
func youtubeThumbnail(videoURL string) string {
	match := youtubeVideoIDPattern.FindStringSubmatch(videoURL)
	if match == nil {
		return ""
	}
	return "https://img.youtube.com/vi/" + match[1] + "/hqdefault.jpg"
}
