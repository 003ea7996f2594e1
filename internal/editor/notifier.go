package editor

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/klass-lk/inkpost/internal/model"
)

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient, user-visible message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}

var (
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
	draftBadge     = lipgloss.NewStyle().Foreground(lipgloss.Color("136")).Bold(true)
	publishedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	tagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("25"))
)

// TerminalNotifier prints notices, one per line, styled by kind.
type TerminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

func (t *TerminalNotifier) Notify(n Notice) {
	style := infoStyle
	switch n.Kind {
	case NoticeSuccess:
		style = successStyle
	case NoticeError:
		style = errorStyle
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, style.Render(n.Message))
}

// RenderPosts lists posts with a status badge, capitalised title, a content
// preview and their tags.
func RenderPosts(posts []model.Post) string {
	if len(posts) == 0 {
		return infoStyle.Render("No blogs yet")
	}

	var b strings.Builder
	for i, p := range posts {
		if i > 0 {
			b.WriteString("\n")
		}
		badge := draftBadge.Render("[Draft]")
		if p.Status == model.StatusPublished {
			badge = publishedBadge.Render("[Published]")
		}
		fmt.Fprintf(&b, "%s %s  %s\n", badge, titleStyle.Render(capitalize(p.Title)), infoStyle.Render(p.ID))
		if preview := preview(p.Content, 3); preview != "" {
			b.WriteString(preview)
			b.WriteString("\n")
		}
		if len(p.Tags) > 0 {
			tags := make([]string, len(p.Tags))
			for j, tag := range p.Tags {
				tags[j] = tagStyle.Render("#" + tag)
			}
			b.WriteString(strings.Join(tags, " "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// preview keeps the first n lines of content.
func preview(content string, n int) string {
	lines := strings.SplitN(strings.TrimSpace(content), "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}
