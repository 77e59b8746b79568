package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/api"
	"github.com/alexanderramin/tally/internal/cache"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/mirror"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/charmbracelet/lipgloss"
)

// FormatDashboard renders the summary cards. local marks figures computed
// from the mirror instead of the server.
func FormatDashboard(s api.DashboardSummary, local bool) string {
	work := fmt.Sprintf("%s %s\n%s %s\n%s %s",
		Bold(strconv.Itoa(s.ActiveProjects)), Dim(fmt.Sprintf("active of %d projects", s.TotalProjects)),
		Bold(strconv.Itoa(s.OpenTasks)), Dim("open tasks"),
		Bold(strconv.Itoa(s.CompletedTasks)), Dim("completed tasks"),
	)
	overdue := Dim("0 overdue")
	if s.OverdueTasks > 0 {
		overdue = StyleRed.Render(fmt.Sprintf("%d overdue", s.OverdueTasks))
	}
	work += "\n" + overdue

	money := moneyLines("Budgeted", s.Budgeted) + "\n" + moneyLines("Spent", s.Spent)

	inbox := Dim("inbox clear")
	if s.UnreadNotifications > 0 {
		inbox = StyleYellow.Render(fmt.Sprintf("%d unread", s.UnreadNotifications))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		RenderBox("Work", work), " ",
		RenderBox("Money", money), " ",
		RenderBox("Notifications", inbox),
	)
	if local {
		return cards + "\n" + Dim("Computed from local data.")
	}
	return cards
}

func moneyLines(label string, amounts []domain.Money) string {
	if len(amounts) == 0 {
		return Dim(label) + "  " + Dim("--")
	}
	sorted := append([]domain.Money(nil), amounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Currency < sorted[j].Currency })
	lines := make([]string, 0, len(sorted))
	for i, m := range sorted {
		prefix := strings.Repeat(" ", lipgloss.Width(label))
		if i == 0 {
			prefix = label
		}
		lines = append(lines, Dim(prefix)+"  "+FormatMoney(m))
	}
	return strings.Join(lines, "\n")
}

// PlaceholderNote explains that a listing came from the local mirror.
func PlaceholderNote(resource string, err error) string {
	msg := fmt.Sprintf("⚠ Showing local %s; the server could not be reached", resource)
	if err != nil {
		msg = fmt.Sprintf("⚠ Showing local %s (%v)", resource, err)
	}
	return StyleYellow.Render(msg)
}

// FormatSyncResults renders the outcome of refreshing every mirror.
func FormatSyncResults(results []reconcile.SyncResult, states []mirror.SyncState, now time.Time) string {
	synced := make(map[string]mirror.SyncState, len(states))
	for _, s := range states {
		synced[s.Resource] = s
	}
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		status := StyleGreen.Render("✔ synced")
		count := strconv.Itoa(r.Count)
		if r.Err != nil {
			failed++
			status = StyleRed.Render("✖ " + Truncate(r.Err.Error(), 48))
			count = Dim("--")
		}
		last := Dim("never")
		if s, ok := synced[r.Resource]; ok && !s.LastSyncedAt.IsZero() {
			last = HumanTimestamp(s.LastSyncedAt, now)
		}
		rows = append(rows, []string{Bold(r.Resource), count, last, status})
	}
	t := Table{
		Headers: []string{"RESOURCE", "ITEMS", "LAST SYNC", "RESULT"},
		Rows:    rows,
		Align:   RightAlign(4, 1),
	}
	title := "Sync"
	if failed > 0 {
		title = fmt.Sprintf("Sync (%d failed)", failed)
	}
	return RenderBox(title, t.Render())
}

// FormatCacheEntries lists query cache entries with their freshness.
func FormatCacheEntries(entries []cache.Snapshot, now time.Time) string {
	if len(entries) == 0 {
		return Dim("Cache is empty.")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		state := StyleGreen.Render("fresh")
		switch {
		case e.Fetching:
			state = StyleBlue.Render("fetching")
		case e.Err != nil && !e.HasData:
			state = StyleRed.Render("error")
		case e.Stale:
			state = StyleYellow.Render("stale")
		}
		errText := ""
		if e.Err != nil {
			errText = Dim(Truncate(e.Err.Error(), 40))
		}
		rows = append(rows, []string{e.Key.String(), state, HumanTimestamp(e.UpdatedAt, now), errText})
	}
	return RenderBox("Query cache", RenderTable([]string{"KEY", "STATE", "UPDATED", "ERROR"}, rows))
}

// FormatSyncStates lists what each mirror holds and when it was refreshed.
func FormatSyncStates(states []mirror.SyncState, now time.Time) string {
	if len(states) == 0 {
		return Dim("No mirror has been synced yet.")
	}
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		errText := ""
		if s.LastError != "" {
			errText = StyleRed.Render(Truncate(s.LastError, 40))
		}
		rows = append(rows, []string{Bold(s.Resource), strconv.Itoa(s.ItemCount), HumanTimestamp(s.LastSyncedAt, now), errText})
	}
	t := Table{
		Headers: []string{"RESOURCE", "ITEMS", "LAST SYNC", "LAST ERROR"},
		Rows:    rows,
		Align:   RightAlign(4, 1),
	}
	return RenderBox("Local mirrors", t.Render())
}
