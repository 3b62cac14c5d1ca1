package runmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

// ExecError reports code in a block that failed to compile or threw while
// running. Line and Column refer to the original document.
type ExecError struct {
	File    string // Document path
	Line    int    // Line number (1-indexed), 0 when unknown
	Column  int    // Column number (1-indexed, optional)
	Context string // Context name of the failing block, empty if anonymous
	Message string // Error message as reported by the runtime
	Stack   string // JavaScript stack trace, if any
	Err     error  // Underlying runtime error

	source []string // Document lines for the excerpt
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Unwrap returns the underlying runtime error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Format returns a nicely formatted error message with context.
func (e *ExecError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("❌ Error in %s\n\n", e.File))
	if e.Line > 0 {
		b.WriteString(fmt.Sprintf("Line %d: %s\n", e.Line, e.Message))
	} else {
		b.WriteString(e.Message + "\n")
	}

	b.WriteString(e.excerpt())

	if e.Context != "" {
		b.WriteString(fmt.Sprintf("\n🔗 Block runs in context %q\n", e.Context))
	}
	if e.Stack != "" {
		b.WriteString("\n" + e.Stack + "\n")
	}

	return b.String()
}

// excerpt shows two lines either side of the failing line.
func (e *ExecError) excerpt() string {
	if e.Line < 1 || e.Line > len(e.source) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")

	start := max(1, e.Line-2)
	end := min(len(e.source), e.Line+2)

	for i := start; i <= end; i++ {
		prefix := fmt.Sprintf("  %2d | ", i)
		b.WriteString(prefix + e.source[i-1] + "\n")

		if i == e.Line && e.Column > 0 {
			b.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1) + "^\n")
		}
	}

	return b.String()
}

// newExecError converts a goja error into an ExecError, pulling the
// position from the first stack frame that belongs to the document.
func newExecError(filename string, err error) *ExecError {
	e := &ExecError{File: filename, Message: err.Error(), Err: err}

	var parseErrs parser.ErrorList
	var syntax *goja.CompilerSyntaxError
	var exc *goja.Exception

	switch {
	case errors.As(err, &parseErrs) && len(parseErrs) > 0:
		first := parseErrs[0]
		e.Message = "SyntaxError: " + first.Message
		e.Line, e.Column = first.Position.Line, first.Position.Column
	case errors.As(err, &syntax):
		e.Message = "SyntaxError: " + syntax.Message
		if syntax.File != nil {
			pos := syntax.File.Position(syntax.Offset)
			e.Line, e.Column = pos.Line, pos.Column
		}
	case errors.As(err, &exc):
		if v := exc.Value(); v != nil {
			e.Message = v.String()
		}
		for _, frame := range exc.Stack() {
			if frame.SrcName() == filename {
				pos := frame.Position()
				e.Line, e.Column = pos.Line, pos.Column
				break
			}
		}
		if s := exc.String(); s != e.Message {
			e.Stack = s
		}
	}

	return e
}
