package cli

import (
	"fmt"
	"io"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// ReportError prints err for the operator and returns the process exit
// status. With verbose set the stack of the innermost typed error follows.
func ReportError(w io.Writer, err error, verbose bool) int {
	if err == nil {
		return 0
	}

	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("❌"), err)
	if errors.ShouldRetry(err) {
		fmt.Fprintln(w, warningStyle.Render("The node or state store could not be reached in time; rerunning the same command may succeed."))
	}
	if verbose {
		if trace := errors.StackTraceOf(err); trace != "" {
			fmt.Fprintln(w, subtitleStyle.Render(trace))
		}
	}
	return errors.ExitCodeFor(err)
}

// Verbose reports whether debug logging was requested.
func (a *App) Verbose() bool {
	return a.cfg != nil && a.cfg.Logging.Level == "debug"
}
