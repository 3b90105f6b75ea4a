package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/service"
)

type fakeSession struct {
	questions []string
	titles    []string
	wikiOpts  []service.WikiOptions
	cleared   int
	summary   string
}

func (f *fakeSession) IngestPDF(_ context.Context, name string, _ io.ReadSeeker) string {
	return "Successfully processed 1 PDF chunks. (embedded: 1)"
}

func (f *fakeSession) IngestWikipedia(_ context.Context, title string, opts service.WikiOptions) string {
	f.titles = append(f.titles, title)
	f.wikiOpts = append(f.wikiOpts, opts)
	return "Successfully processed 3 Wikipedia chunks from '" + title + "'. (embedded: 3)"
}

func (f *fakeSession) IngestNotion(_ context.Context, pageURL, apiKey string) string {
	if pageURL == "" || apiKey == "" {
		return service.MsgNotionMissingArgs
	}
	return "Successfully processed 2 Notion chunks. (embedded: 2)"
}

func (f *fakeSession) Ask(_ context.Context, question string) string {
	f.questions = append(f.questions, question)
	return "Gophers live underground. They eat roots."
}

func (f *fakeSession) ClearHistory() { f.cleared++ }

func (f *fakeSession) Stats(context.Context) (service.Stats, error) {
	return service.Stats{Collection: "docs", Count: 3, LastEmbedded: 3, Summary: f.summary}, nil
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
		rest string
	}{
		{"what is a gopher?", KindQuestion, "what is a gopher?"},
		{"/pdf  ./docs/a b.pdf ", KindPDF, "./docs/a b.pdf"},
		{"/wiki Go (programming language)", KindWiki, "Go (programming language)"},
		{"/WIKISUM Gopher", KindWikiSummary, "Gopher"},
		{"/notion https://notion.so/x-abc key", KindNotion, "https://notion.so/x-abc key"},
		{"/clear", KindClear, ""},
		{"/stats", KindStats, ""},
		{"/help", KindHelp, ""},
		{"/exit", KindQuit, ""},
		{"/nope", KindUnknown, ""},
	}
	for _, tc := range cases {
		cmd := ParseCommand(tc.in)
		assert.Equal(t, tc.kind, cmd.Kind, tc.in)
		assert.Equal(t, tc.rest, cmd.Rest, tc.in)
	}
	assert.Equal(t, []string{"https://notion.so/x-abc", "key"}, ParseCommand("/notion https://notion.so/x-abc key").Args)
}

func TestHighlightBestSentenceKeepsText(t *testing.T) {
	text := "Gophers live underground. They eat roots."
	out := highlightBestSentence(text, "what do gophers eat roots")
	assert.Contains(t, out, "They eat roots.")
	assert.Contains(t, out, "Gophers live underground.")
	assert.Equal(t, text, highlightBestSentence(text, "the of"))
	assert.Equal(t, "", highlightBestSentence("", "query"))
}

func TestTokenOverlapScoreIgnoresStopwords(t *testing.T) {
	q := map[string]struct{}{"the": {}, "roots": {}}
	assert.Equal(t, 1, tokenOverlapScore(q, "The roots of the tree."))
}

func newTestModel(t *testing.T, s *fakeSession) Model {
	t.Helper()
	m := New(context.Background(), s, "No document loaded.")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// submit types line and presses enter, then delivers the background result.
func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		return m
	}
	for _, msg := range drain(cmd) {
		if res, ok := msg.(resultMsg); ok {
			next, _ = m.Update(res)
			m = next.(Model)
		}
	}
	return m
}

func drain(cmd tea.Cmd) []tea.Msg {
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			if c != nil {
				out = append(out, drain(c)...)
			}
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestQuestionRoundTrip(t *testing.T) {
	s := &fakeSession{}
	m := newTestModel(t, s)

	m.input.SetValue("what do gophers eat?")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	busy := next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, busy.busy)

	// enter is ignored while an operation is running
	busy.input.SetValue("second")
	_, again := busy.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	for _, msg := range drain(cmd) {
		if res, ok := msg.(resultMsg); ok {
			next, _ = busy.Update(res)
		}
	}
	done := next.(Model)
	assert.False(t, done.busy)
	assert.Equal(t, []string{"what do gophers eat?"}, s.questions)
	require.Len(t, done.lines, 2)
	assert.Equal(t, speakerUser, done.lines[0].who)
	assert.Equal(t, speakerAssistant, done.lines[1].who)
	assert.Contains(t, done.renderTranscript(), "roots")
}

func TestIngestCommandsUpdateSummary(t *testing.T) {
	s := &fakeSession{summary: "Gophers dig tunnels."}
	m := newTestModel(t, s)

	m = submit(t, m, "/wikisum Gopher")
	assert.Equal(t, []string{"Gopher"}, s.titles)
	assert.Equal(t, []service.WikiOptions{{Summary: true}}, s.wikiOpts)
	assert.Equal(t, "Document: Gophers dig tunnels.", m.summary)
	assert.Contains(t, m.lines[len(m.lines)-1].text, "Successfully processed 3 Wikipedia chunks")

	m = submit(t, m, "/notion https://www.notion.so/page-abc")
	assert.Equal(t, service.MsgNotionMissingArgs, m.lines[len(m.lines)-1].text)

	m = submit(t, m, "/pdf")
	assert.Equal(t, service.MsgNoPDF, m.lines[len(m.lines)-1].text)

	m = submit(t, m, "/pdf /does/not/exist.pdf")
	assert.True(t, strings.HasPrefix(m.lines[len(m.lines)-1].text, "Error processing PDF:"))

	m = submit(t, m, "/stats")
	assert.Contains(t, m.lines[len(m.lines)-1].text, "Collection docs holds 3 chunks")
}

func TestClearAndHelp(t *testing.T) {
	s := &fakeSession{}
	m := newTestModel(t, s)

	m = submit(t, m, "/help")
	require.Len(t, m.lines, 1)
	assert.Equal(t, helpText, m.lines[0].text)

	m = submit(t, m, "/clear")
	assert.Empty(t, m.lines)
	assert.Equal(t, 1, s.cleared)
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, &fakeSession{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSummaryLineClearedWhenNothingIndexed(t *testing.T) {
	s := &fakeSession{summary: "Gophers dig tunnels."}
	m := newTestModel(t, s)

	m = submit(t, m, "/wiki Gopher")
	assert.Equal(t, "Document: Gophers dig tunnels.", m.summary)

	s.summary = ""
	m = submit(t, m, "/wiki Empty page")
	assert.Equal(t, "No document loaded.", m.summary)
}
