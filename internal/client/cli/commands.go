package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

// idArg returns args[0] or asks for an id.
func (a *App) idArg(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) List(ctx context.Context, args []string) error {
	list, err := a.accounts.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No accounts.")
		return nil
	}
	return renderTable(a.out, list)
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter account id to show")
	if err != nil {
		return err
	}
	acc, err := a.accounts.Get(ctx, id)
	if err != nil {
		return err
	}
	renderAccount(a.out, acc)
	return nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetNewPassword(a.out, false)
	if err != nil {
		return err
	}
	roles, err := GetSimpleText(a.reader, "Roles (comma-separated)", a.out)
	if err != nil {
		return err
	}

	id, err := a.accounts.Create(ctx, username, password, services.ParseRoles(roles))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created account %s\n", id)
	return nil
}

// noRoles is the answer that clears every role on edit.
const noRoles = "-"

func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter account id to edit")
	if err != nil {
		return err
	}
	acc, err := a.accounts.Get(ctx, id)
	if err != nil {
		return err
	}

	username, err := GetTextWithDefault(a.reader, "Username", acc.UserName, a.out)
	if err != nil {
		return err
	}
	roles, err := GetTextWithDefault(a.reader, "Roles (comma-separated, "+noRoles+" for none)", strings.Join(acc.Roles, ", "), a.out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(roles) == noRoles {
		roles = ""
	}
	password, err := GetNewPassword(a.out, true)
	if err != nil {
		return err
	}

	if err := a.accounts.Update(ctx, id, username, services.ParseRoles(roles), password); err != nil {
		return err
	}

	if password != "" {
		fmt.Fprintln(a.out, "Account updated, password changed")
	} else {
		fmt.Fprintln(a.out, "Account updated")
	}
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	return a.setDeleted(ctx, args, true)
}

func (a *App) Restore(ctx context.Context, args []string) error {
	return a.setDeleted(ctx, args, false)
}

func (a *App) setDeleted(ctx context.Context, args []string, deleted bool) error {
	verb := "restore"
	if deleted {
		verb = "delete"
	}
	id, err := a.idArg(args, fmt.Sprintf("Enter account id to %s", verb))
	if err != nil {
		return err
	}
	if err := a.accounts.SetDeleted(ctx, id, deleted); err != nil {
		return err
	}
	if deleted {
		fmt.Fprintln(a.out, "Account deleted (it can be restored or purged)")
	} else {
		fmt.Fprintln(a.out, "Account restored")
	}
	return nil
}

func (a *App) Purge(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter account id to purge")
	if err != nil {
		return err
	}
	acc, err := a.accounts.Get(ctx, id)
	if err != nil {
		return err
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Permanently remove %q? This cannot be undone.", acc.UserName), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.accounts.Purge(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account purged")
	return nil
}

// Login checks a username and password without changing anything.
func (a *App) Login(ctx context.Context, args []string) error {
	var (
		username string
		err      error
	)
	if len(args) > 0 {
		username = args[0]
	} else if username, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}

	acc, err := a.creds.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	a.userName = acc.UserName
	fmt.Fprintf(a.out, "Authenticated as %s (roles: %s)\n", acc.UserName, formatRoles(acc.Roles))
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	st, err := a.accounts.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Database:     OK (%s)\n", formatTime(&st.DBTime))
	fmt.Fprintf(a.out, "Last update:  %s\n", formatTime(st.LastUpdatedAt))
	return nil
}
