package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/notify"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// App holds what CLI commands need. The workspace is opened lazily so
// commands like --help never touch the database or the network.
type App struct {
	// Open builds the workspace. offline serves every read from the mirror.
	Open func(ctx context.Context, offline bool) (*reconcile.Workspace, error)
	// Listen creates the notification stream listener for ws.
	Listen func(ws *reconcile.Workspace) *notify.Listener
	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
	// Confirm asks a yes/no question. Defaults to a huh form.
	Confirm func(title string) (bool, error)
	// Now is the clock used for relative dates.
	Now    func() time.Time
	Logger *zap.Logger

	offline bool
	ws      *reconcile.Workspace
}

func (a *App) workspace(ctx context.Context) (*reconcile.Workspace, error) {
	if a.ws != nil {
		return a.ws, nil
	}
	if a.Open == nil {
		return nil, fmt.Errorf("no workspace configured")
	}
	ws, err := a.Open(ctx, a.offline)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}
	a.ws = ws
	return ws, nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) confirm(title string) (bool, error) {
	if a.Confirm != nil {
		return a.Confirm(title)
	}
	var ok bool
	if err := confirmForm(title, &ok).Run(); err != nil {
		return false, err
	}
	return ok, nil
}

// notePlaceholder tells the user on stderr that a listing came from the
// mirror because the server did not answer. Offline runs stay quiet.
func (a *App) notePlaceholder(cmd *cobra.Command, resource string, placeholder bool, err error) {
	if !placeholder || a.offline {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), formatter.PlaceholderNote(resource, err))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
