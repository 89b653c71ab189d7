package driver

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	raverr "raven/pkg/errors"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	frameColor = color.New(color.FgHiBlack)
)

// DisplayError writes err to w in the CLI's diagnostic format: a bold red
// "<Kind> Error" label, the message, and for a RuntimeError its call
// stack trace, dimmed, innermost frame first.
func DisplayError(w io.Writer, err raverr.RavenError) {
	if err == nil {
		return
	}
	errorLabel.Fprintf(w, "%s Error", err.Kind())
	fmt.Fprintf(w, " (line %d): %s\n", err.Pos().Line, err.Message())
	if rt, ok := err.(*raverr.RuntimeError); ok {
		for _, frame := range rt.Frames {
			frameColor.Fprintf(w, "  %s\n", frame)
		}
	}
}
