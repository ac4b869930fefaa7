package sentlist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/theme"
)

// Item wraps a sent model.Notification for use in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Title
}

// ItemDelegate renders sent rows: title, audience badge, and read progress.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update is a no-op; list state is handled by the parent model.
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single sent row.
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

	progress := ""
	if n.RecipientsCount > 0 {
		progress = fmt.Sprintf("%d/%d read", n.ReadCount, n.RecipientsCount)
	}

	line := fmt.Sprintf(
		"%s%s %s  %s",
		marker,
		titleStyle.Render(n.Title),
		theme.TargetBadgeStyle.Render(audienceSummary(n.Targets)),
		theme.ReadStyle.Render(progress),
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// audienceSummary renders a short badge for the audience targets. A long
// target list collapses to the first label plus a count.
func audienceSummary(targets []model.Target) string {
	if len(targets) == 0 {
		return "Everyone"
	}

	labels := make([]string, 0, len(targets))
	for _, t := range targets {
		label := t.Label
		if label == "" {
			label = api.TargetLabel(t, "", "")
		}
		labels = append(labels, label)
	}

	if len(labels) > 2 {
		return fmt.Sprintf("%s +%d more", labels[0], len(labels)-1)
	}
	return strings.Join(labels, ", ")
}
