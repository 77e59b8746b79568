package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// TreeItem is one line of an indented tree.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	Done   bool
	Active bool
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
)

// RenderTree renders items with box-drawing connectors. Done items get a
// green ✔, active ones a yellow ▶, and details are aligned in a right column.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	contents := make([]string, len(items))
	widest := 0
	for i, item := range items {
		var prefix string
		if item.Level > 0 {
			prefix = strings.Repeat(treePipe, item.Level-1)
			if item.IsLast {
				prefix += treeCorner
			} else {
				prefix += treeBranch
			}
		}

		title := item.Title
		switch {
		case item.Done:
			title = StyleGreen.Render("✔") + " " + Dim(title)
		case item.Active:
			title = StyleYellow.Render("▶") + " " + StyleYellow.Render(title)
		}
		if prefix != "" {
			title = StyleDim.Render(strings.TrimRight(prefix, " ")) + " " + title
		}
		contents[i] = title
		widest = max(widest, lipgloss.Width(contents[i]))
	}

	var b strings.Builder
	for i, item := range items {
		b.WriteString(contents[i])
		if item.Detail != "" {
			b.WriteString(strings.Repeat(" ", widest-lipgloss.Width(contents[i])))
			b.WriteString("  " + StyleBlue.Render("[ "+item.Detail+" ]"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ProjectTree groups a project's tasks under their sprints, sprints in start
// order, followed by the backlog of tasks without a sprint.
func ProjectTree(sprints []domain.Sprint, tasks []domain.Task) []TreeItem {
	ordered := append([]domain.Sprint(nil), sprints...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartDate.Before(ordered[j].StartDate) })

	bySprint := make(map[string][]domain.Task)
	known := make(map[string]bool, len(ordered))
	for _, s := range ordered {
		known[s.ID] = true
	}
	for _, t := range tasks {
		key := t.SprintID
		if !known[key] {
			key = ""
		}
		bySprint[key] = append(bySprint[key], t)
	}

	var items []TreeItem
	appendGroup := func(title string, done, active bool, detail string, group []domain.Task) {
		items = append(items, TreeItem{Title: title, Done: done, Active: active, Detail: detail})
		for i, t := range group {
			items = append(items, TreeItem{
				Title:  t.Title,
				Level:  1,
				IsLast: i == len(group)-1,
				Done:   t.IsDone(),
				Active: t.Status == domain.TaskInProgress || t.Status == domain.TaskReview,
				Detail: string(t.Priority),
			})
		}
	}
	for _, s := range ordered {
		group := bySprint[s.ID]
		done := 0
		for _, t := range group {
			if t.IsDone() {
				done++
			}
		}
		appendGroup(Bold(s.Name), s.Status == domain.SprintCompleted, s.Status == domain.SprintActive,
			ShortDate(s.StartDate)+" → "+ShortDate(s.EndDate)+" · "+strconv.Itoa(done)+"/"+strconv.Itoa(len(group)), group)
	}
	if backlog := bySprint[""]; len(backlog) > 0 {
		appendGroup(Bold("Backlog"), false, false, strconv.Itoa(len(backlog))+" tasks", backlog)
	}
	return items
}
