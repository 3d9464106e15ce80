package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to. The real App
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Purge(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  list                  list all accounts, active and deleted
  show <id>             show one account
  add                   create an account
  edit <id>             change username, roles or password
  delete <id>           soft-delete an account
  restore <id>          undo a soft delete
  purge <id>            permanently remove a deleted account
  login [username]      check a username and password
  status                database health and last update
  exit | quit           leave the console`

// runREPL reads commands from reader until EOF or "exit"/"quit". The first
// token selects the command, the rest are passed as arguments. Command
// prompts read from the same reader, so a command may consume further lines.
// Prompts, messages and command errors go to w, the writer the commands
// print to; errors do not end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "admin%s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "restore":
			cmdErr = a.Restore(ctx, args)
		case "purge":
			cmdErr = a.Purge(ctx, args)
		case "login":
			cmdErr = a.Login(ctx, args)
		case "status":
			cmdErr = a.Status(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, describe(cmdErr))
		}
	}
}
