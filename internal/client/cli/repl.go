package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	ChangePassword(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the erpadmin CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Commands:
//
//	Not logged in:
//	  - help           show available commands
//	  - login          authenticate
//	  - status         show session state
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - help           show available commands
//	  - whoami         show the current user, roles and permissions
//	  - status         show session state and token lifetime
//	  - refresh        renew the access token now
//	  - passwd         change the password
//	  - logout         log out
//	  - exit | quit    leave the program
//
// Command handlers report their own errors; the returned error is only used
// to print a short failure line.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("erp %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, status, refresh, passwd, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "passwd":
			cmdErr = a.ChangePassword(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
