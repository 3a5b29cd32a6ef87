package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/clinicsync/internal/client/clinic"
	"github.com/dmitrijs2005/clinicsync/internal/client/datasync"
	"github.com/dmitrijs2005/clinicsync/internal/client/session"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
)

func success(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, format+"\n", args...)
}

func warn(w io.Writer, format string, args ...any) {
	_, _ = warnColor.Fprintf(w, format+"\n", args...)
}

func fail(w io.Writer, format string, args ...any) {
	_, _ = failColor.Fprintf(w, format+"\n", args...)
}

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

// describeError turns an engine error into a message for the user. The
// transport failure kinds get distinct wording.
func describeError(err error) string {
	var cycle *datasync.CycleError
	var logout *session.LogoutError
	var ue userError

	switch {
	case errors.As(err, &ue):
		return string(ue)
	case errors.Is(err, session.ErrPinMismatch):
		return "Incorrect PIN."
	case errors.Is(err, session.ErrBlocked):
		return "Too many incorrect attempts: " + err.Error() + "."
	case errors.Is(err, session.ErrNoUser):
		return "Nobody is logged in on this device. Run `clinic login` or `clinic register`."
	case errors.Is(err, session.ErrNoOngoingLogin):
		return "No login in progress. Run `clinic login` again."
	case errors.Is(err, session.ErrUserNotFound):
		return "The server no longer knows this account. Log in again."
	case errors.Is(err, clinic.ErrNoFacility):
		return "Your account is not attached to a facility."
	case errors.Is(err, common.ErrSyncNotAllowed):
		return "Syncing is not allowed yet; the account may be waiting for approval."
	case errors.As(err, &cycle):
		parts := make([]string, 0, len(cycle.Failures))
		for _, f := range cycle.Failures {
			parts = append(parts, fmt.Sprintf("%s (%s): %s", f.Entity, f.Stage, kindMessage(f.Err)))
		}
		return "Sync finished with errors:\n  " + strings.Join(parts, "\n  ")
	case errors.As(err, &logout):
		return fmt.Sprintf("Logout stopped while %s: %s", logout.Stage, kindMessage(logout.Err))
	case errors.Is(err, common.ErrValidation) && !errors.Is(err, common.ErrServer):
		return err.Error()
	case errors.Is(err, common.ErrNotFound):
		return "Not found."
	}
	return kindMessage(err)
}

func kindMessage(err error) string {
	switch common.KindOf(err) {
	case common.KindNetwork:
		return "Could not reach the server. Check the connection and try again."
	case common.KindServer:
		return fmt.Sprintf("The server could not handle the request (%v).", err)
	case common.KindUnauthorized:
		return "The server no longer accepts this device. Log in again."
	case common.KindCanceled:
		return "Cancelled."
	case common.KindPrecondition:
		return err.Error()
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}

func printCounts(w io.Writer, counts map[string]int) int {
	tables := make([]string, 0, len(counts))
	total := 0
	for table, n := range counts {
		tables = append(tables, table)
		total += n
	}
	sort.Strings(tables)

	tw := newTable(w, "TABLE", "PENDING")
	for _, table := range tables {
		fmt.Fprintf(tw, "%s\t%d\n", table, counts[table])
	}
	_ = tw.Flush()
	return total
}
