package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
)

// ErrNoPageID is returned when a Notion URL carries no page identifier.
var ErrNoPageID = errors.New("no page id in notion url")

type childLister interface {
	GetChildren(ctx context.Context, id notionapi.BlockID, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
}

// Notion reads the paragraph text of a Notion page.
type Notion struct {
	lister func(apiKey string) childLister
	logger *zap.Logger
}

func NewNotion(logger *zap.Logger) *Notion {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notion{
		lister: func(apiKey string) childLister {
			return notionapi.NewClient(notionapi.Token(apiKey)).Block
		},
		logger: logger,
	}
}

// PageIDFromURL returns the last dash separated segment of the URL path,
// which is where Notion puts the page id.
func PageIDFromURL(pageURL string) (string, error) {
	raw := strings.TrimSpace(pageURL)
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.LastIndex(raw, "-"); i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return "", ErrNoPageID
	}
	return raw, nil
}

// PageText lists every child block of the page and joins the plain text of
// its paragraphs, one line per paragraph. Empty paragraphs are skipped.
func (n *Notion) PageText(ctx context.Context, pageURL, apiKey string) (string, error) {
	id, err := PageIDFromURL(pageURL)
	if err != nil {
		return "", err
	}
	blocks := n.lister(apiKey)
	var (
		sb     strings.Builder
		cursor notionapi.Cursor
		pages  int
	)
	for {
		resp, err := blocks.GetChildren(ctx, notionapi.BlockID(id), &notionapi.Pagination{StartCursor: cursor, PageSize: 100})
		if err != nil {
			return "", fmt.Errorf("list notion blocks: %w", err)
		}
		pages++
		for _, b := range resp.Results {
			p, ok := b.(*notionapi.ParagraphBlock)
			if !ok {
				continue
			}
			line := plainText(p.Paragraph.RichText)
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
	n.logger.Debug("notion page read", zap.String("page_id", id), zap.Int("batches", pages))
	return sb.String(), nil
}

func plainText(rt []notionapi.RichText) string {
	var sb strings.Builder
	for _, t := range rt {
		sb.WriteString(t.PlainText)
	}
	return sb.String()
}
