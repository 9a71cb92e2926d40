package cli

import (
	"context"
	"fmt"

	"github.com/common-nighthawk/go-figure"
)

func (a *App) getStatus() string {
	a.mu.RLock()
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	a.mu.RUnlock()

	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root restores the stored session, prompts for a login when there is none,
// starts the background watchers and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	figure.NewFigure("erpadmin", "", true).Print()
	printlnFn("Welcome to erpadmin CLI (type 'help' for commands)")

	events, unsubscribe := a.session.Subscribe()
	defer unsubscribe()
	go a.watchAuthEvents(ctx, events)
	go a.watchSignOut(ctx)

	if err := a.session.Init(ctx); err != nil {
		a.log.Error(ctx, "error restoring session", "error", err)
	}
	if !a.isLoggedIn() {
		_ = a.Login(ctx)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
