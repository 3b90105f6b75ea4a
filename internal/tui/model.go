package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/service"
	"docqa/internal/textutil"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	IngestPDF(ctx context.Context, name string, r io.ReadSeeker) string
	IngestWikipedia(ctx context.Context, title string, opts service.WikiOptions) string
	IngestNotion(ctx context.Context, pageURL, apiKey string) string
	Ask(ctx context.Context, question string) string
	ClearHistory()
	Stats(ctx context.Context) (service.Stats, error)
}

type speaker int

const (
	speakerUser speaker = iota
	speakerAssistant
	speakerSystem
)

type line struct {
	who  speaker
	text string
	// question an assistant answer responds to, used for highlighting
	question string
}

// resultMsg carries the outcome of a background operation.
type resultMsg struct {
	text     string
	question string
	summary  string
	system   bool
	// ingest results always replace the summary line
	ingest bool
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	session  ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	lines    []line
	banner   string
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model bound to session.
func New(ctx context.Context, session ChatPort, banner string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question or type /help"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		banner:   banner,
		summary:  banner,
		status:   "Ready. Load a document with /pdf, /wiki or /notion.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case resultMsg:
		m.busy = false
		who := speakerAssistant
		if msg.system {
			who = speakerSystem
		}
		m.lines = append(m.lines, line{who: who, text: msg.text, question: msg.question})
		if msg.ingest {
			m.summary = msg.summary
		}
		m.status = "Ready."
		m.input.Focus()
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.busy {
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		return m, nil
	}
	m.input.Reset()
	cmd := ParseCommand(raw)

	var work func() resultMsg
	switch cmd.Kind {
	case KindQuit:
		return m, tea.Quit
	case KindHelp:
		m.lines = append(m.lines, line{who: speakerSystem, text: helpText})
		m.refresh()
		return m, nil
	case KindUnknown:
		m.lines = append(m.lines, line{who: speakerSystem, text: "Unknown command. Type /help."})
		m.refresh()
		return m, nil
	case KindClear:
		m.session.ClearHistory()
		m.lines = nil
		m.status = "Conversation cleared."
		m.refresh()
		return m, nil
	case KindQuestion:
		m.lines = append(m.lines, line{who: speakerUser, text: cmd.Rest})
		q := cmd.Rest
		work = func() resultMsg {
			return resultMsg{text: m.session.Ask(m.ctx, q), question: q}
		}
	case KindPDF:
		path := cmd.Rest
		work = func() resultMsg { return m.ingested(m.ingestPDF(path)) }
	case KindWiki, KindWikiSummary:
		opts := service.WikiOptions{Summary: cmd.Kind == KindWikiSummary}
		title := cmd.Rest
		work = func() resultMsg { return m.ingested(m.session.IngestWikipedia(m.ctx, title, opts)) }
	case KindNotion:
		var url, key string
		if len(cmd.Args) > 0 {
			url = cmd.Args[0]
		}
		if len(cmd.Args) > 1 {
			key = cmd.Args[1]
		}
		work = func() resultMsg { return m.ingested(m.session.IngestNotion(m.ctx, url, key)) }
	case KindStats:
		work = m.stats
	}

	m.busy = true
	m.status = "Working..."
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return work() })
}

func (m Model) ingestPDF(path string) string {
	if path == "" {
		return service.MsgNoPDF
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
	defer f.Close()
	return m.session.IngestPDF(m.ctx, filepath.Base(path), f)
}

// ingested attaches the new document summary to an ingestion message.
func (m Model) ingested(text string) resultMsg {
	res := resultMsg{text: text, system: true, ingest: true, summary: m.summary}
	st, err := m.session.Stats(m.ctx)
	switch {
	case err != nil:
		// keep the current line
	case st.Summary != "":
		res.summary = "Document: " + st.Summary
	default:
		res.summary = m.banner
	}
	return res
}

func (m Model) stats() resultMsg {
	st, err := m.session.Stats(m.ctx)
	if err != nil {
		return resultMsg{text: "Failed to read collection: " + err.Error(), system: true}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Collection %s holds %d chunks (last embedded: %d).", st.Collection, st.Count, st.LastEmbedded)
	for i, s := range st.Sample {
		fmt.Fprintf(&sb, "\n  sample %d: %s", i+1, service.Preview(s, 120))
	}
	return resultMsg{text: sb.String(), system: true}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(truncate(m.summary, m.viewport.Width))
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.lines) == 0 {
		return "No messages yet. Type /help for commands."
	}
	width := max(10, m.viewport.Width-2)
	parts := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		switch l.who {
		case speakerUser:
			parts = append(parts, userStyle.Render("You: ")+wrap(l.text, width))
		case speakerAssistant:
			parts = append(parts, botStyle.Render("Assistant: ")+wrap(highlightBestSentence(l.text, l.question), width))
		default:
			parts = append(parts, systemStyle.Render(wrap(l.text, width)))
		}
	}
	return strings.Join(parts, "\n\n")
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	systemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func wrap(text string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(text)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// highlightBestSentence emphasises the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	qTokens := textutil.TermSet(query)
	if len(qTokens) == 0 {
		return text
	}
	sentences := textutil.Sentences(text)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	if bestIdx < 0 {
		return text
	}
	best := sentences[bestIdx]
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TermSet(sentence) {
		if textutil.IsStopword(t) {
			continue
		}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
