package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/notify"
	"github.com/alexanderramin/tally/internal/reconcile"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif", "inbox"},
		Short:   "Read and follow notifications",
	}
	cmd.AddCommand(
		newNotificationsListCmd(app),
		newNotificationsReadCmd(app),
		newNotificationsWatchCmd(app),
	)
	return cmd
}

func newNotificationsListCmd(app *App) *cobra.Command {
	var opts listOptions
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notifications, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			st := ws.Notifications.Query(ctx)
			app.notePlaceholder(cmd, "notifications", st.IsPlaceholder, st.Error)

			items := newestFirst(st.Data)
			if unreadOnly {
				items = filter(items, func(n domain.Notification) bool { return !n.Read })
			}
			items = items[:opts.apply(len(items))]
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatNotificationList(items, app.now()))
			return nil
		},
	}

	cmd.Flags().AddFlagSet(listFlags(&opts))
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	return cmd
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read ID",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			id, err := resolveID(ctx, ws.Notifications, args[0], "notification")
			if err != nil {
				return err
			}
			n, err := ws.MarkRead(ctx, id)
			if err != nil {
				return fmt.Errorf("marking notification read: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked read: %s %s\n", formatter.Bold(n.Title), formatter.TruncID(n.ID))

			if count, local, err := ws.UnreadCount(ctx); err == nil || local {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim(fmt.Sprintf("%d unread", count)))
			}
			return nil
		},
	}
}

func newNotificationsWatchCmd(app *App) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow new notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ws, err := app.workspace(ctx)
			if err != nil {
				return err
			}
			if ws.Offline() {
				return fmt.Errorf("watch needs the server: %w", reconcile.ErrOffline)
			}
			if app.Listen == nil {
				return errors.New("notification stream is not configured")
			}
			l := app.Listen(ws)

			unread, _, err := ws.UnreadCount(ctx)
			if err != nil {
				app.logger().Warn("Unread count unavailable, using local count", zap.Error(err))
			}
			l.SetUnreadCount(unread)

			if plain || !app.interactive() {
				return streamPlain(ctx, cmd.OutOrStdout(), l, app)
			}

			initial := newestFirst(ws.Notifications.Load(ctx).Data)
			m := newWatchModel(initial, unread, l.Reconnect, app.now).
				withInboxLoad(ws.Notifications.Wait)
			p := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			l.OnNotification(func(n domain.Notification) { p.Send(notificationMsg{n: n}) })
			l.OnUnreadCount(func(n int) { p.Send(unreadMsg{count: n}) })
			l.OnStatus(func(s notify.Status) { p.Send(listenerStatusMsg{status: s, err: l.Err()}) })

			if err := l.Start(ctx); err != nil {
				return err
			}
			defer l.Stop()

			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print one line per notification instead of the live view")
	return cmd
}

// streamPlain prints notifications until ctx ends or the listener gives up.
func streamPlain(ctx context.Context, out io.Writer, l *notify.Listener, app *App) error {
	gaveUp := make(chan error, 1)
	l.OnNotification(func(n domain.Notification) {
		fmt.Fprintln(out, formatter.NotificationLine(n, app.now()))
	})
	l.OnStatus(func(s notify.Status) {
		if s != notify.StatusDisconnected {
			return
		}
		if err := l.Err(); err != nil {
			select {
			case gaveUp <- err:
			default:
			}
		}
	})

	if err := l.Start(ctx); err != nil {
		return err
	}
	defer l.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-gaveUp:
		return err
	}
}

func newestFirst(ns []domain.Notification) []domain.Notification {
	out := make([]domain.Notification, len(ns))
	copy(out, ns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
