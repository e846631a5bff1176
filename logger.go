package dyndns

import (
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// NewFileLogger returns a logger that appends one timestamped line per
// message to w. It is the logger the bundled command wires up for its
// audit log. The caller keeps ownership of w and closes it, if it needs
// closing, after the last log call.
func NewFileLogger(w io.Writer) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s %s: %s\n", time.Now().Format(time.ANSIC), prefix, args)
			return
		}
		fmt.Fprintf(w, "%s %s\n", time.Now().Format(time.ANSIC), args)
	}, funcr.Options{})
}
