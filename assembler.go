package runmd

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// renderPass is the state of one top-to-bottom walk over a document.
type renderPass struct {
	filename  string
	lines     []string
	placement Placement
	logger    zerolog.Logger

	out       []string
	hide      bool
	transform LineTransform
	sandboxes *sandboxRegistry

	// Block in progress, nil while in prose.
	directive  *Directive
	script     []string
	lineOffset int
}

// Assemble runs every executable block of source and returns the rendered
// document lines, without a footer.
func Assemble(ctx context.Context, source string, opts Options) ([]string, error) {
	placement := opts.Placement
	if placement == "" {
		placement = PlacementAfter
	}

	p := &renderPass{
		filename:  opts.Filename,
		lines:     strings.Split(source, "\n"),
		placement: placement,
		logger:    opts.Logger.With().Str("pass", uuid.NewString()).Logger(),
	}
	p.sandboxes = newSandboxRegistry(p, p.filename, p.logger)

	for i, line := range p.lines {
		if err := p.step(ctx, i, line); err != nil {
			return nil, err
		}
	}

	if p.directive != nil {
		p.logger.Debug().Int("line", p.lineOffset).Msg("block never closed, not executed")
	}
	return p.out, nil
}

func (p *renderPass) step(ctx context.Context, i int, line string) error {
	if p.directive == nil {
		d, ok := ParseDirective(line)
		if !ok {
			return p.emitLine(i, line, false)
		}
		p.directive = d
		p.hide = d.Hide
		p.lineOffset = i + 1
		p.script = p.script[:0]
		return p.emitLine(i, d.Fence, true)
	}

	if isFence(line) {
		return p.closeBlock(ctx, i, line)
	}

	p.script = append(p.script, line)
	return p.emitLine(i, line, true)
}

// closeBlock executes the collected block and splices its output in. Hiding
// covers the block lines only, so output of a hidden block stays visible.
func (p *renderPass) closeBlock(ctx context.Context, i int, fence string) error {
	d := p.directive
	script := strings.Join(p.script, "\n")
	hidden := p.hide
	p.directive = nil

	sb, err := p.sandboxes.get(d.Context)
	if err != nil {
		return err
	}

	if p.placement == PlacementInline {
		p.write("")
		p.hide = false
		if err := p.exec(ctx, sb, script); err != nil {
			return err
		}
		if hidden {
			return nil
		}
		return p.emitLine(i, fence, false)
	}

	if err := p.emitLine(i, fence, true); err != nil {
		return err
	}
	p.write("")
	p.hide = false
	return p.exec(ctx, sb, script)
}

func (p *renderPass) exec(ctx context.Context, sb *Sandbox, script string) error {
	before := len(p.out)

	err := sb.Run(ctx, script, p.lineOffset, p.filename)
	var execErr *ExecError
	if errors.As(err, &execErr) {
		execErr.source = p.lines
	}
	if err != nil {
		return err
	}

	p.logger.Debug().
		Int("line", p.lineOffset).
		Str("context", sb.Name()).
		Int("output", len(p.out)-before).
		Msg("executed block")
	return nil
}

// emitLine applies hiding and the active transform to a document line.
func (p *renderPass) emitLine(i int, line string, inBlock bool) error {
	if p.hide {
		return nil
	}
	if p.transform != nil {
		out, keep, err := p.transform.Apply(line, inBlock)
		if err != nil {
			e := newExecError(p.filename, err)
			if e.Line == 0 {
				e.Line = i + 1
			}
			e.source = p.lines
			return e
		}
		if !keep {
			return nil
		}
		line = out
	}
	p.out = append(p.out, line)
	return nil
}

// write appends a line untouched by transforms.
func (p *renderPass) write(line string) {
	if !p.hide {
		p.out = append(p.out, line)
	}
}

func (p *renderPass) emitOutput(lines ...string) {
	for _, line := range lines {
		p.write(line)
	}
}

func (p *renderPass) setTransform(t LineTransform) {
	p.transform = t
}
