package tui

import (
	"strings"
)

// Kind of a parsed input line.
type Kind int

const (
	KindQuestion Kind = iota
	KindPDF
	KindWiki
	KindWikiSummary
	KindNotion
	KindClear
	KindStats
	KindHelp
	KindQuit
	KindUnknown
)

// Command is one parsed input line.
type Command struct {
	Kind Kind
	Args []string
	// Rest is everything after the command word, trimmed.
	Rest string
}

const helpText = `Commands:
  /pdf <path>             index a PDF file
  /wiki <title>           index a full Wikipedia article
  /wikisum <title>        index the first sentences of an article
  /notion <url> [api-key] index the paragraphs of a Notion page
  /stats                  show what is indexed
  /clear                  clear the conversation
  /help                   show this help
  /quit                   exit
Anything else is a question about the indexed document.`

// ParseCommand splits an input line into a command and its arguments.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: KindQuestion, Rest: line}
	}
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	cmd := Command{Rest: rest, Args: strings.Fields(rest)}
	switch strings.ToLower(word) {
	case "/pdf":
		cmd.Kind = KindPDF
	case "/wiki":
		cmd.Kind = KindWiki
	case "/wikisum":
		cmd.Kind = KindWikiSummary
	case "/notion":
		cmd.Kind = KindNotion
	case "/clear":
		cmd.Kind = KindClear
	case "/stats":
		cmd.Kind = KindStats
	case "/help", "/?":
		cmd.Kind = KindHelp
	case "/quit", "/exit":
		cmd.Kind = KindQuit
	default:
		cmd.Kind = KindUnknown
	}
	return cmd
}
