package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, rememberMe bool) error
	Signup(ctx context.Context, rememberMe bool) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line from reader until EOF or "exit".
//
//	Not logged in:
//	  help | login [--remember] | signup [--remember] | exit
//
//	Logged in:
//	  help | whoami | logout | exit
//
// Errors returned by command handlers are ignored here; handlers report
// them to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "credauth%s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		remember := slices.Contains(args, "--remember") || slices.Contains(args, "-r")

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: whoami, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: login [--remember], signup [--remember], exit")
			}

		case "login":
			_ = a.Login(ctx, remember)

		case "signup", "register":
			_ = a.Signup(ctx, remember)

		case "whoami", "me":
			_ = a.WhoAmI(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}

func (a *App) getStatus() string {
	if a.session == nil {
		return ""
	}
	s := " (anonymous)"
	if a.session.User != nil {
		s = fmt.Sprintf(" (%s)", a.session.User.Email)
	}
	return s
}

// Shell runs the interactive REPL until the user exits.
func (a *App) Shell(ctx context.Context) error {
	a.println("Welcome to credauth (type 'help' for commands)")
	if a.session != nil && a.session.User != nil {
		a.println("Signed in as", a.session.User.DisplayName())
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return nil
}
