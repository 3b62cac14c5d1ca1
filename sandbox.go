package runmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	_ "github.com/dop251/goja_nodejs/util" // require('util') for block code
	"github.com/rs/zerolog"
)

// host is what a sandbox may do to the render pass that owns it.
type host interface {
	emitOutput(lines ...string)
	setTransform(t LineTransform)
}

// Sandbox is an isolated JavaScript scope that block code runs in. It
// exposes console, require and setLineTransformer to the code.
type Sandbox struct {
	name string
	vm   *goja.Runtime
	host host
}

// Name returns the context name, empty for anonymous sandboxes.
func (s *Sandbox) Name() string {
	return s.name
}

// sandboxRegistry hands out sandboxes for one render pass. Named sandboxes
// are cached so blocks sharing a context name share bindings.
type sandboxRegistry struct {
	host    host
	named   map[string]*Sandbox
	modules *require.Registry
	logger  zerolog.Logger
}

func newSandboxRegistry(h host, filename string, logger zerolog.Logger) *sandboxRegistry {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		dir = filepath.Dir(filename)
	}

	r := &sandboxRegistry{
		host:   h,
		named:  make(map[string]*Sandbox),
		logger: logger,
	}
	r.modules = require.NewRegistry(
		require.WithLoader(r.loadModule),
		require.WithGlobalFolders(filepath.Join(dir, "node_modules")),
	)
	return r
}

// get returns the sandbox for a block. The active line transform is always
// cleared, even when a cached sandbox is reused.
func (r *sandboxRegistry) get(name string) (*Sandbox, error) {
	r.host.setTransform(nil)

	if name != "" {
		if sb, ok := r.named[name]; ok {
			r.logger.Debug().Str("context", name).Msg("reusing context")
			return sb, nil
		}
	}

	sb, err := r.newSandbox(name)
	if err != nil {
		return nil, err
	}
	if name != "" {
		r.named[name] = sb
	}

	r.logger.Debug().Str("context", name).Msg("created context")
	return sb, nil
}

func (r *sandboxRegistry) newSandbox(name string) (*Sandbox, error) {
	sb := &Sandbox{name: name, vm: goja.New(), host: r.host}
	vm := sb.vm

	// require resolves relative paths against the calling module, which
	// for block code is the document itself.
	r.modules.Enable(vm)

	console := vm.NewObject()
	for k, v := range map[string]interface{}{
		"log":     sb.consoleLog,
		"info":    sb.consoleLog,
		"isRunmd": true,
	} {
		if err := console.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to set console.%s: %w", k, err)
		}
	}

	globals := map[string]interface{}{
		"console":            console,
		"setLineTransformer": sb.setLineTransformer,
	}
	for k, v := range globals {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	return sb, nil
}

func (r *sandboxRegistry) loadModule(path string) ([]byte, error) {
	data, err := require.DefaultSourceLoader(path)
	if err == nil {
		r.logger.Debug().Str("module", path).Msg("loaded module")
	}
	return data, err
}

// consoleLog captures console.log output into the document.
func (s *Sandbox) consoleLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = formatArg(s.vm, arg)
	}

	lines := strings.Split(strings.Join(parts, " "), "\n")
	for i, line := range lines {
		lines[i] = OutputMarker + line
	}
	s.host.emitOutput(lines...)

	return goja.Undefined()
}

// setLineTransformer installs fn as the active line transform. Passing
// null, undefined or false clears it.
func (s *Sandbox) setLineTransformer(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if fn, ok := goja.AssertFunction(arg); ok {
		s.host.setTransform(&scriptTransform{vm: s.vm, fn: fn})
		return goja.Undefined()
	}
	if goja.IsUndefined(arg) || goja.IsNull(arg) || !arg.ToBoolean() {
		s.host.setTransform(nil)
		return goja.Undefined()
	}
	panic(s.vm.NewTypeError("setLineTransformer expects a function"))
}
