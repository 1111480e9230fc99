package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/triage"
)

const (
	formatText = "text"
	formatJSON = "json"

	maxNameWidth = 41
	maxTextWidth = 100
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unsupported format %q (supported: text, json)", format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate collapses whitespace and shortens s to limit runes, marking the
// cut with "...".
func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// renderTable writes rows in aligned columns under a bold header.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				parts[i] = style.Render(cell)
				continue
			}
			parts[i] = cellStyle.Inherit(style).Width(widths[i] + 2).Render(cell)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	fmt.Fprintln(w, line(headers, headerStyle))
	for _, row := range rows {
		fmt.Fprintln(w, line(row, lipgloss.NewStyle()))
	}
}

func renderMentions(w io.Writer, result *triage.Result) {
	src := result.Source
	summary := fmt.Sprintf("scanned %d of %d spaces, %d messages, %s",
		src.TotalSpacesScanned, result.TotalCount, src.TotalMessagesScanned, src.ExitReason)

	if len(result.Mentions) == 0 {
		fmt.Fprintf(w, "Nothing needs your attention (%s).\n", summary)
		return
	}

	noun := "messages need"
	if len(result.Mentions) == 1 {
		noun = "message needs"
	}
	fmt.Fprintf(w, "%d %s your attention (%s)\n", len(result.Mentions), noun, summary)

	for _, m := range result.Mentions {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s (%d members), %s\n",
			headerStyle.Render("["+string(m.Type)+"]"),
			truncate(m.Space, maxNameWidth), m.Members, ago(m.Time))
		fmt.Fprintf(w, "  %s: %s\n", m.Sender, truncate(m.Text, maxTextWidth))
		ref := m.SpaceID
		if m.ThreadName != "" {
			ref = m.ThreadName
		}
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(ref))
	}
}

func shortSpaceType(t triage.SpaceType) string {
	switch t {
	case triage.SpaceTypeDirectMessage:
		return "direct"
	case triage.SpaceTypeGroupChat:
		return "group"
	case triage.SpaceTypeSpace:
		return "space"
	}
	return "other"
}

func renderSpaces(w io.Writer, spaces []chat.SpaceSummary) {
	if len(spaces) == 0 {
		fmt.Fprintln(w, "No spaces found.")
		return
	}
	rows := make([][]string, 0, len(spaces))
	for _, s := range spaces {
		members := "-"
		if s.Members > 0 {
			members = fmt.Sprint(s.Members)
		}
		rows = append(rows, []string{
			strings.TrimPrefix(s.Name, "spaces/"),
			shortSpaceType(s.Type),
			truncate(s.DisplayName, maxNameWidth),
			members,
			ago(s.LastActiveTime),
		})
	}
	renderTable(w, []string{"ID", "TYPE", "NAME", "USERS", "LAST ACTIVE"}, rows)
}

func renderMessages(w io.Writer, messages []chat.MessageSummary) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(w, "[%s] %s: %s\n",
			m.CreateTime.Local().Format("2006-01-02 15:04"), m.Sender, truncate(m.Text, maxTextWidth))
	}
}

func renderProfiles(w io.Writer, profiles []google.Profile) {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		name := "  " + p.Name
		if p.Active {
			name = activeStyle.Render("* " + p.Name)
		}
		email := p.Email
		switch {
		case p.ADC:
			email = "(application default credentials)"
		case email == "":
			email = "-"
		}
		validated := "never"
		if p.LastValidated != nil {
			validated = ago(*p.LastValidated)
		}
		if p.ADC {
			validated = "-"
		}
		rows = append(rows, []string{name, truncate(email, 40), validated})
	}
	renderTable(w, []string{"  PROFILE", "EMAIL", "VALIDATED"}, rows)
}
