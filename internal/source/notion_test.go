package source

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageIDFromURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://www.notion.so/acme/Meeting-Notes-0123456789abcdef0123456789abcdef", "0123456789abcdef0123456789abcdef"},
		{"https://www.notion.so/Roadmap-abc123?pvs=4", "abc123"},
		{"https://www.notion.so/0123456789abcdef0123456789abcdef/", "0123456789abcdef0123456789abcdef"},
		{"Meeting-Notes-feedface", "feedface"},
	}
	for _, tc := range cases {
		got, err := PageIDFromURL(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := PageIDFromURL("https://www.notion.so/Notes-")
	assert.ErrorIs(t, err, ErrNoPageID)
}

type fakeLister struct {
	batches []*notionapi.GetChildrenResponse
	calls   []notionapi.Pagination
	ids     []notionapi.BlockID
	err     error
}

func (f *fakeLister) GetChildren(_ context.Context, id notionapi.BlockID, p *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ids = append(f.ids, id)
	f.calls = append(f.calls, *p)
	resp := f.batches[0]
	f.batches = f.batches[1:]
	return resp, nil
}

func paragraph(parts ...string) *notionapi.ParagraphBlock {
	rt := make([]notionapi.RichText, 0, len(parts))
	for _, p := range parts {
		rt = append(rt, notionapi.RichText{PlainText: p})
	}
	return &notionapi.ParagraphBlock{Paragraph: notionapi.Paragraph{RichText: rt}}
}

func TestPageTextJoinsParagraphsAcrossPages(t *testing.T) {
	fake := &fakeLister{batches: []*notionapi.GetChildrenResponse{
		{
			Results:    []notionapi.Block{paragraph("Hello, ", "world."), &notionapi.Heading1Block{}, paragraph()},
			HasMore:    true,
			NextCursor: "next",
		},
		{Results: []notionapi.Block{paragraph("Second page.")}},
	}}
	n := NewNotion(nil)
	n.lister = func(string) childLister { return fake }

	text, err := n.PageText(context.Background(), "https://www.notion.so/Notes-abc123", "key")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world.\nSecond page.\n", text)
	assert.Equal(t, []notionapi.BlockID{"abc123", "abc123"}, fake.ids)
	assert.Equal(t, notionapi.Cursor("next"), fake.calls[1].StartCursor)
}

func TestPageTextPropagatesErrors(t *testing.T) {
	n := NewNotion(nil)
	n.lister = func(string) childLister { return &fakeLister{err: errors.New("unauthorized")} }
	_, err := n.PageText(context.Background(), "https://www.notion.so/Notes-abc123", "bad")
	assert.ErrorContains(t, err, "unauthorized")
}
