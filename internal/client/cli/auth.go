package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/client/client"
	"github.com/dmitrijs2005/erpadmin/internal/client/session"
	"github.com/dmitrijs2005/erpadmin/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// nowFn is the clock used for status output.
var nowFn = time.Now

// Login prompts the user for credentials and authenticates.
//
// Invalid credentials and an unreachable server are reported to the user and
// returned; the password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	cred, err := a.session.Login(ctx, userName, string(password))
	switch {
	case err == nil:
	case errors.Is(err, client.ErrInvalidCredentials):
		printlnFn("Invalid username or password")
		return err
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		printlnFn("Server unavailable, try again later")
		return err
	default:
		a.log.Error(ctx, "login failed", "error", err)
		return err
	}

	a.setMode(ModeOnline)
	a.setUserName(userName)
	printlnFn(fmt.Sprintf("Login successful, token valid until %s", cred.ExpiresAt.Local().Format(time.RFC1123)))
	return nil
}

// Logout revokes the refresh token and clears the stored credential. When
// the store is shared, other clients are told to sign out as well.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not logged in")
		return nil
	}

	err := a.session.Logout(ctx)
	a.setUserName("")

	if a.bus != nil {
		if perr := a.bus.PublishSignOut(ctx, "logout"); perr != nil {
			a.log.Warn(ctx, "error publishing sign-out", "error", perr)
		}
	}

	if err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the identity of the current user.
func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return session.ErrNotAuthenticated
	}

	if u := a.session.CurrentUser(); u != nil {
		printlnFn(fmt.Sprintf("User:        %s (id %s)", u.Username, u.ID))
		if u.Email != "" {
			printlnFn(fmt.Sprintf("Email:       %s", u.Email))
		}
		printlnFn(fmt.Sprintf("Roles:       %s", joinOrDash(u.Roles)))
		printlnFn(fmt.Sprintf("Permissions: %s", joinOrDash(u.Permissions)))
		return nil
	}

	c, ok := a.session.Claims()
	if !ok {
		printlnFn("User: unknown (profile not loaded)")
		return nil
	}
	printlnFn(fmt.Sprintf("User:        %s (id %s)", c.Username, c.SubjectID))
	printlnFn(fmt.Sprintf("Roles:       %s", joinOrDash(c.Roles)))
	return nil
}

// Status prints the session state and the remaining token lifetime.
func (a *App) Status(ctx context.Context) error {
	printlnFn(fmt.Sprintf("State:       %s", a.session.State()))
	if m := a.mode(); m != "" {
		printlnFn(fmt.Sprintf("Server:      %s (%s)", a.config.ServerURL, m))
	} else {
		printlnFn(fmt.Sprintf("Server:      %s", a.config.ServerURL))
	}

	if exp, ok := a.session.ExpiresAt(); ok {
		left := exp.Sub(nowFn()).Truncate(time.Second)
		if left < 0 {
			left = 0
		}
		printlnFn(fmt.Sprintf("Expires at:  %s (in %s)", exp.Local().Format(time.RFC1123), left))
	}
	if at, ok := a.session.NextRenewal(); ok {
		printlnFn(fmt.Sprintf("Renews at:   %s", at.Local().Format(time.RFC1123)))
	}
	return nil
}

// Refresh renews the access token immediately.
func (a *App) Refresh(ctx context.Context) error {
	cred, err := a.session.Refresh(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			printlnFn("Nothing to refresh, please log in")
		}
		return err
	}
	printlnFn(fmt.Sprintf("Token renewed, valid until %s", cred.ExpiresAt.Local().Format(time.RFC1123)))
	return nil
}

// ChangePassword prompts for the current and the new password (twice).
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return session.ErrNotAuthenticated
	}

	prompts := []string{"Current password", "New password", "Repeat new password"}
	values := make([][]byte, 0, len(prompts))
	defer func() {
		for _, v := range values {
			common.WipeByteArray(v)
		}
	}()

	for _, p := range prompts {
		pw, err := getPassword(a.reader, p, os.Stdout)
		if err != nil {
			return err
		}
		values = append(values, pw)
	}

	err := a.session.ChangePassword(ctx, string(values[0]), string(values[1]), string(values[2]))
	if err != nil {
		var herr *client.HTTPError
		if errors.As(err, &herr) && herr.Detail != "" {
			printlnFn("Password not changed:", herr.Detail)
		}
		return err
	}
	printlnFn("Password changed")
	return nil
}

func joinOrDash(v []string) string {
	if len(v) == 0 {
		return "-"
	}
	s := append([]string(nil), v...)
	sort.Strings(s)
	return strings.Join(s, ", ")
}
