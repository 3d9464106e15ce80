package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

const timeLayout = "2006-01-02 15:04 UTC"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func formatRoles(roles []string) string {
	if len(roles) == 0 {
		return "-"
	}
	return strings.Join(roles, ", ")
}

// renderTable writes accounts as an aligned table in the given order.
func renderTable(w io.Writer, list []models.PublicAccount) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUsername\tRoles\tUpdated\tDeleted")
	for i := range list {
		a := &list[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.UserName, formatRoles(a.Roles), formatTime(&a.UpdatedAt), formatTime(a.DeletedAt))
	}
	return tw.Flush()
}

// renderAccount writes one account as "Key: value" lines.
func renderAccount(w io.Writer, a *models.PublicAccount) {
	state := "active"
	if a.IsDeleted() {
		state = "deleted"
	}
	fmt.Fprintf(w, "ID:       %s\n", a.ID)
	fmt.Fprintf(w, "Username: %s\n", a.UserName)
	fmt.Fprintf(w, "Roles:    %s\n", formatRoles(a.Roles))
	fmt.Fprintf(w, "State:    %s\n", state)
	fmt.Fprintf(w, "Updated:  %s\n", formatTime(&a.UpdatedAt))
	fmt.Fprintf(w, "Deleted:  %s\n", formatTime(a.DeletedAt))
}
