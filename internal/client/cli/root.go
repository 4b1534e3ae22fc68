package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = func(args ...any) { fmt.Println(args...) }

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ListCustomers(ctx context.Context) error
	AddCustomer(ctx context.Context) error
	ShowCustomer(ctx context.Context) error
	DeleteCustomer(ctx context.Context) error
	SearchCustomers(ctx context.Context) error
	AddOrder(ctx context.Context) error
	DeleteOrder(ctx context.Context) error
	Sync(ctx context.Context) error
	Purge(ctx context.Context) error
	ImportDemo(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the MiniCRM CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//	register       — create an account
//	login          — authenticate
//	logout         — log out
//	list | l       — list customers
//	add            — add or edit a customer
//	show           — show a customer with its orders and stats
//	delete         — delete a customer
//	search         — search customers
//	addorder       — add an order to a customer
//	delorder       — delete an order
//	sync           — push all pending data to the server
//	purge          — remove locally deleted rows
//	demo           — import bundled demo data
//	exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("crm %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, add, show, delete, search, addorder, delorder, sync, purge, demo, logout, exit")
			} else {
				printlnFn("Available commands: register, login, (l)ist, add, show, delete, search, addorder, delorder, demo, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "l", "list":
			_ = a.ListCustomers(ctx)

		case "add":
			_ = a.AddCustomer(ctx)

		case "show":
			_ = a.ShowCustomer(ctx)

		case "delete":
			_ = a.DeleteCustomer(ctx)

		case "search":
			_ = a.SearchCustomers(ctx)

		case "addorder":
			_ = a.AddOrder(ctx)

		case "delorder":
			_ = a.DeleteOrder(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "purge":
			_ = a.Purge(ctx)

		case "demo":
			_ = a.ImportDemo(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the REPL against stdin until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to MiniCRM CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.getStatus, scanner)
}
