package inboxlist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Title
}

// ItemDelegate renders inbox rows: an unread dot, title, sender, and age.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update is a no-op; list state is handled by the parent model.
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single inbox row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(Item)
	if !ok {
		return
	}
	n := item.Notification

	marker := "  "
	titleStyle := theme.ReadStyle
	if !n.Read() {
		marker = theme.UnreadStyle.Render("● ")
		titleStyle = theme.UnreadStyle
	}

	sender := n.SenderName
	if sender == "" {
		sender = "unknown sender"
	}
	if n.SenderRole != "" {
		sender += " (" + n.SenderRole + ")"
	}

	line := fmt.Sprintf(
		"%s%s  %s  %s",
		marker,
		titleStyle.Render(n.Title),
		theme.ReadStyle.Render(sender),
		theme.ReadStyle.Render(relativeTime(n.CreatedAt)),
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string for the
// server's ISO-8601 timestamp. Unparseable timestamps render as-is.
func relativeTime(iso string) string {
	if iso == "" {
		return ""
	}

	t, err := parseTimestamp(iso)
	if err != nil {
		return iso
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

// parseTimestamp tries the timestamp layouts the backend has emitted.
func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
