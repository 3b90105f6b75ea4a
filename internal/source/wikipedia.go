package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PageError reports a title with no matching article.
type PageError struct {
	Title string
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %q does not match any pages", e.Title)
}

// DisambiguationError reports a title that resolves to a disambiguation page.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q may refer to %d pages", e.Title, len(e.Options))
}

// WikipediaConfig configures the MediaWiki client.
type WikipediaConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Wikipedia fetches article text through the MediaWiki action API.
// Redirects are followed; titles are used exactly as given.
type Wikipedia struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

func NewWikipedia(cfg WikipediaConfig) *Wikipedia {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://en.wikipedia.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "docqa/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Wikipedia{
		endpoint:  strings.TrimSuffix(cfg.BaseURL, "/") + "/w/api.php",
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Extract   string `json:"extract"`
			PageProps struct {
				Disambiguation *string `json:"disambiguation"`
			} `json:"pageprops"`
			Links []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Page returns the full plain-text content of the article.
func (w *Wikipedia) Page(ctx context.Context, title string) (string, error) {
	return w.extract(ctx, title, url.Values{})
}

// Summary returns the first sentences of the article.
func (w *Wikipedia) Summary(ctx context.Context, title string, sentences int) (string, error) {
	params := url.Values{}
	if sentences > 0 {
		params.Set("exsentences", strconv.Itoa(sentences))
	}
	return w.extract(ctx, title, params)
}

// Search returns article titles matching query, best match first.
func (w *Wikipedia) Search(ctx context.Context, query string) ([]string, error) {
	var resp queryResponse
	err := w.get(ctx, url.Values{
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"10"},
		"srprop":   {""},
	}, &resp)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (w *Wikipedia) extract(ctx context.Context, title string, params url.Values) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &PageError{Title: title}
	}
	params.Set("prop", "extracts|pageprops")
	params.Set("ppprop", "disambiguation")
	params.Set("explaintext", "1")
	params.Set("titles", title)
	var resp queryResponse
	if err := w.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 {
		return "", &PageError{Title: title}
	}
	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return "", &PageError{Title: title}
	}
	if page.PageProps.Disambiguation != nil {
		options, err := w.links(ctx, page.Title)
		if err != nil {
			return "", err
		}
		return "", &DisambiguationError{Title: title, Options: options}
	}
	return page.Extract, nil
}

func (w *Wikipedia) links(ctx context.Context, title string) ([]string, error) {
	var resp queryResponse
	err := w.get(ctx, url.Values{
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {"max"},
		"titles":      {title},
	}, &resp)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range resp.Query.Pages {
		for _, l := range p.Links {
			out = append(out, l.Title)
		}
	}
	return out, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, out *queryResponse) error {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("redirects", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", w.userAgent)
	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()
	w.logger.Debug("wikipedia request",
		zap.String("titles", params.Get("titles")),
		zap.String("search", params.Get("srsearch")),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia request failed: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode wikipedia response: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("wikipedia api error %s: %s", out.Error.Code, out.Error.Info)
	}
	return nil
}
