package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/notify"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ── messages ─────────────────────────────────────────────────────────────────

// notificationMsg carries one pushed notification.
type notificationMsg struct{ n domain.Notification }

// unreadMsg carries the unread count after a change.
type unreadMsg struct{ count int }

// listenerStatusMsg reports a connection state change.
type listenerStatusMsg struct {
	status notify.Status
	err    error
}

// reconnectedMsg is the result of a manual reconnect.
type reconnectedMsg struct{ err error }

// inboxLoadedMsg carries the server list that replaces the mirror placeholder
// the view opened with.
type inboxLoadedMsg struct {
	state reconcile.State[domain.Notification]
}

// ── keys ─────────────────────────────────────────────────────────────────────

type watchKeys struct {
	Quit      key.Binding
	Reconnect key.Binding
	Up        key.Binding
	Down      key.Binding
}

func newWatchKeys() watchKeys {
	return watchKeys{
		Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Reconnect: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	}
}

func (k watchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Reconnect, k.Quit}
}

func (k watchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// ── model ────────────────────────────────────────────────────────────────────

// watchModel shows the live notification stream. Newest notifications are
// at the top.
type watchModel struct {
	reconnect func(ctx context.Context) error
	load      func(ctx context.Context) reconcile.State[domain.Notification]
	now       func() time.Time

	items  []domain.Notification
	pushed []domain.Notification
	stale  bool
	unread int
	status notify.Status
	err    error

	keys    watchKeys
	help    help.Model
	spinner spinner.Model
	vp      viewport.Model
	ready   bool
}

func newWatchModel(initial []domain.Notification, unread int, reconnect func(context.Context) error, now func() time.Time) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StyleYellow

	items := make([]domain.Notification, len(initial))
	copy(items, initial)

	return watchModel{
		reconnect: reconnect,
		now:       now,
		items:     items,
		unread:    unread,
		status:    notify.StatusConnecting,
		keys:      newWatchKeys(),
		help:      help.New(),
		spinner:   sp,
	}
}

// withInboxLoad makes the model replace its initial items with the result of
// load once it returns. Pushed notifications that arrive first are kept.
func (m watchModel) withInboxLoad(load func(context.Context) reconcile.State[domain.Notification]) watchModel {
	m.load = load
	m.stale = load != nil
	return m
}

func (m watchModel) Init() tea.Cmd {
	if m.load == nil {
		return m.spinner.Tick
	}
	load := m.load
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return inboxLoadedMsg{state: load(context.Background())}
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := max(msg.Height-4, 1)
		if !m.ready {
			m.vp = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = h
		}
		m.help.Width = msg.Width
		m.vp.SetContent(m.body())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reconnect):
			if m.reconnect == nil {
				return m, nil
			}
			m.status = notify.StatusConnecting
			m.err = nil
			reconnect := m.reconnect
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				return reconnectedMsg{err: reconnect(context.Background())}
			})
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case notificationMsg:
		m.items = upsertNotification(m.items, msg.n)
		if m.stale {
			m.pushed = append(m.pushed, msg.n)
		}
		m.refresh()
		return m, nil

	case inboxLoadedMsg:
		m.stale = false
		if msg.state.Error != nil {
			m.err = fmt.Errorf("refreshing notifications: %w", msg.state.Error)
		}
		items := newestFirst(msg.state.Data)
		for _, n := range m.pushed {
			items = upsertNotification(items, n)
		}
		m.items = items
		m.pushed = nil
		m.refresh()
		return m, nil

	case unreadMsg:
		m.unread = msg.count
		return m, nil

	case listenerStatusMsg:
		m.status = msg.status
		if msg.err != nil {
			m.err = msg.err
		}
		if m.busy() {
			return m, m.spinner.Tick
		}
		return m, nil

	case reconnectedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = notify.StatusDisconnected
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) busy() bool {
	return m.status == notify.StatusConnecting || m.status == notify.StatusReconnecting
}

func (m *watchModel) refresh() {
	if m.ready {
		m.vp.SetContent(m.body())
		m.vp.GotoTop()
	}
}

func (m watchModel) body() string {
	if len(m.items) == 0 {
		return formatter.Dim("Waiting for notifications…")
	}
	now := m.now()
	lines := make([]string, 0, len(m.items))
	for _, n := range m.items {
		lines = append(lines, formatter.NotificationLine(n, now))
	}
	return strings.Join(lines, "\n")
}

func (m watchModel) header() string {
	var state string
	switch m.status {
	case notify.StatusConnected:
		state = formatter.StyleGreen.Render("● live")
		if m.stale {
			state += " " + formatter.Dim("(cached list)")
		}
	case notify.StatusConnecting, notify.StatusReconnecting:
		state = m.spinner.View() + " " + formatter.StyleYellow.Render(string(m.status))
	default:
		state = formatter.StyleRed.Render("○ disconnected")
	}
	line := fmt.Sprintf("%s  %s  %s", formatter.Header("Notifications"), state, formatter.Dim(fmt.Sprintf("%d unread", m.unread)))
	if m.err != nil && m.status != notify.StatusConnected {
		line += "\n" + formatter.StyleRed.Render(m.err.Error())
	}
	return line
}

func (m watchModel) View() string {
	content := m.body()
	if m.ready {
		content = m.vp.View()
	}
	return m.header() + "\n\n" + content + "\n" + m.help.View(m.keys)
}

// upsertNotification puts n first, replacing an older copy with the same ID.
func upsertNotification(items []domain.Notification, n domain.Notification) []domain.Notification {
	out := make([]domain.Notification, 0, len(items)+1)
	out = append(out, n)
	for _, it := range items {
		if it.ID != n.ID {
			out = append(out, it)
		}
	}
	return out
}
