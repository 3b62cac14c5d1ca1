package runmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

// Run executes source in the sandbox. lineOffset is the number of document
// lines before the first source line, so errors report document line
// numbers. Cancelling ctx interrupts the running code.
func (s *Sandbox) Run(ctx context.Context, source string, lineOffset int, filename string) error {
	program, err := s.compile(strings.Repeat("\n", lineOffset)+source, filename)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
	})
	_, err = s.vm.RunProgram(program)
	stop()
	s.vm.ClearInterrupt()
	if err == nil {
		return nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("block at line %d interrupted: %w", lineOffset, context.Cause(ctx))
	}
	return s.execError(filename, err)
}

// compile parses separately from compiling so syntax errors keep their
// position.
func (s *Sandbox) compile(src, filename string) (*goja.Program, error) {
	prg, err := parser.ParseFile(nil, filename, src, 0)
	if err != nil {
		return nil, s.execError(filename, err)
	}
	program, err := goja.CompileAST(prg, false)
	if err != nil {
		return nil, s.execError(filename, err)
	}
	return program, nil
}

func (s *Sandbox) execError(filename string, err error) *ExecError {
	e := newExecError(filename, err)
	e.Context = s.name
	return e
}
