package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kitforge/kit/internal/outcome"
)

var errUsage = errors.New("invalid usage")

var printer = message.NewPrinter(language.English)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

// plural formats n with a singular or plural noun, e.g. "1 file", "12 files".
func plural(n int, one, many string) string {
	if n == 1 {
		return printer.Sprintf("%d %s", n, one)
	}
	return printer.Sprintf("%d %s", n, many)
}

// finish prints v as JSON in --json mode, else calls text. A non-nil failure
// is returned as the command error after printing.
func finish(w io.Writer, v any, f *outcome.Failure, text func() error) error {
	if jsonFlag {
		if err := printJSON(w, v); err != nil {
			return err
		}
	} else if f == nil {
		if err := text(); err != nil {
			return err
		}
	}
	if f != nil {
		return f
	}
	return nil
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "warning: "+format+"\n", args...)
}
