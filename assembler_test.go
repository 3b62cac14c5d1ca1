package runmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, source string, placement Placement) string {
	t.Helper()
	lines, err := Assemble(context.Background(), source, Options{Filename: "test.md", Placement: placement})
	require.NoError(t, err)
	return strings.Join(lines, "\n")
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "no executable blocks",
			source: "# Title\n\ntext\n```javascript\nconsole.log('plain')\n```\n",
			want:   "# Title\n\ntext\n```javascript\nconsole.log('plain')\n```\n",
		},
		{
			name:   "run",
			source: "```javascript --run\nconsole.log('hi')\n```",
			want:   "```javascript\nconsole.log('hi')\n```\n\n⇒ hi",
		},
		{
			name:   "flags stripped, language case kept",
			source: "```JavaScript --run --context=x\n1 + 1\n```",
			want:   "```JavaScript\n1 + 1\n```\n",
		},
		{
			name:   "hidden block keeps its output",
			source: "a\n```javascript --hide\nconsole.log('x')\n```\nb",
			want:   "a\n⇒ x\nb",
		},
		{
			name:   "multi-line output",
			source: "```javascript --run\nconsole.log('one\\ntwo')\n```",
			want:   "```javascript\nconsole.log('one\\ntwo')\n```\n\n⇒ one\n⇒ two",
		},
		{
			name:   "several arguments",
			source: "```javascript --run\nconsole.log('sum', 1 + 2, { ok: true })\n```",
			want:   "```javascript\nconsole.log('sum', 1 + 2, { ok: true })\n```\n\n⇒ sum 3 { ok: true }",
		},
		{
			name:   "console.info and isRunmd",
			source: "```javascript --run\nconsole.info(console.isRunmd)\n```",
			want:   "```javascript\nconsole.info(console.isRunmd)\n```\n\n⇒ true",
		},
		{
			name:   "shared named context",
			source: "```javascript --context=c --hide\nvar n = 1\n```\n```javascript --context=c\nconsole.log(n + 1)\n```",
			want:   "```javascript\nconsole.log(n + 1)\n```\n\n⇒ 2",
		},
		{
			name:   "anonymous blocks are isolated",
			source: "```javascript --hide\nvar n = 1\n```\n```javascript --hide\nconsole.log(typeof n)\n```",
			want:   "⇒ undefined",
		},
		{
			name:   "different contexts are isolated",
			source: "```javascript --context=a --hide\nvar n = 1\n```\n```javascript --context=b --hide\nconsole.log(typeof n)\n```",
			want:   "⇒ undefined",
		},
		{
			name:   "unclosed block is echoed and not run",
			source: "text\n```javascript --run\nconsole.log('never')",
			want:   "text\n```javascript\nconsole.log('never')",
		},
		{
			name:   "unclosed hidden block",
			source: "text\n```javascript --hide\nconsole.log('never')",
			want:   "text",
		},
		{
			name:   "empty block",
			source: "```javascript --run\n```\nafter",
			want:   "```javascript\n```\n\nafter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assemble(t, tt.source, PlacementAfter))
		})
	}
}

func TestAssembleInline(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "output inside the fence",
			source: "```javascript --run\nconsole.log('hi')\n```\nafter",
			want:   "```javascript\nconsole.log('hi')\n\n⇒ hi\n```\nafter",
		},
		{
			name:   "hidden block",
			source: "before\n```javascript --hide\nconsole.log('hi')\n```\nafter",
			want:   "before\n⇒ hi\nafter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assemble(t, tt.source, PlacementInline))
		})
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	source := "# Doc\n\n```javascript --context=a\nvar x = [1, 2]\nconsole.log(x)\n```\n\n```javascript --hide\nconsole.log('hidden')\n```\n"

	first := assemble(t, source, PlacementAfter)
	assert.Equal(t, first, assemble(t, source, PlacementAfter), "same input renders the same output")
	assert.Equal(t, first, assemble(t, first, PlacementAfter), "rendered output has no executable blocks left")
}

func TestAssembleLogsErrorWithoutBlankOutputLine(t *testing.T) {
	source := "```javascript --hide\nconsole.log(new Error('boom'))\n```\nafter"

	lines, err := Assemble(context.Background(), source, Options{Filename: "test.md"})
	require.NoError(t, err)

	require.NotEmpty(t, lines)
	assert.Equal(t, "⇒ Error: boom", lines[0])
	assert.Equal(t, "after", lines[len(lines)-1])
	assert.NotContains(t, lines, OutputMarker)
}

func TestLineTransformer(t *testing.T) {
	source := strings.Join([]string{
		"# heading",
		"```javascript --hide",
		"setLineTransformer(function (line, inBlock) {",
		"  if (line.startsWith('#')) return null",
		"  return inBlock ? line : line.toUpperCase()",
		"})",
		"```",
		"# dropped",
		"shout",
		"```javascript --run",
		"console.log('reset')",
		"```",
		"# kept",
		"quiet",
	}, "\n")

	want := strings.Join([]string{
		"# heading",
		"SHOUT",
		"```javascript",
		"console.log('reset')",
		"```",
		"",
		"⇒ reset",
		"# kept",
		"quiet",
	}, "\n")

	assert.Equal(t, want, assemble(t, source, PlacementAfter))
}

func TestLineTransformerCleared(t *testing.T) {
	source := "```javascript --hide\nsetLineTransformer(function (line) { return line + '!' })\nsetLineTransformer(null)\n```\nplain"

	assert.Equal(t, "plain", assemble(t, source, PlacementAfter))
}

func TestLineTransformerInvalidArgument(t *testing.T) {
	source := "```javascript --run\nsetLineTransformer(42)\n```"

	_, err := Assemble(context.Background(), source, Options{Filename: "test.md"})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr), "got %v", err)
	assert.Contains(t, execErr.Message, "TypeError")
	assert.Equal(t, 2, execErr.Line)
}

func TestLineTransformerThrows(t *testing.T) {
	source := "```javascript --hide\nsetLineTransformer(function (line) { if (line === 'bad') throw new Error('nope'); return line })\n```\nok\nbad"

	_, err := Assemble(context.Background(), source, Options{Filename: "test.md"})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr), "got %v", err)
	assert.Equal(t, "Error: nope", execErr.Message)
}

func TestRequire(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "greet.js"), []byte("module.exports = function (name) { return 'hello ' + name }\n"), 0644))

	source := "```javascript --run\nvar greet = require('./lib/greet')\nvar util = require('util')\nconsole.log(greet('runmd'), util.format('%d', 7))\n```"

	lines, err := Assemble(context.Background(), source, Options{Filename: filepath.Join(dir, "doc.md")})
	require.NoError(t, err)
	assert.Equal(t, "⇒ hello runmd 7", lines[len(lines)-1])
}

func TestRequireNestedRelative(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib/a.js", "module.exports = require('./b') + 1\n")
	writeModule(t, dir, "lib/b.js", "module.exports = require('../shared/base')\n")
	writeModule(t, dir, "shared/base.js", "module.exports = 40\n")

	source := "```javascript --run\nconsole.log(require('./lib/a') + 1)\n```"

	lines, err := Assemble(context.Background(), source, Options{Filename: filepath.Join(dir, "doc.md")})
	require.NoError(t, err)
	assert.Equal(t, "⇒ 42", lines[len(lines)-1])
}

func TestRequireNodeModulesPackage(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "node_modules/pkg/package.json", `{"name": "pkg", "main": "lib/index.js"}`)
	writeModule(t, dir, "node_modules/pkg/lib/index.js", "var impl = require('./impl')\nmodule.exports = { shout: function (s) { return impl.upper(s) + '!' } }\n")
	writeModule(t, dir, "node_modules/pkg/lib/impl.js", "exports.upper = function (s) { return s.toUpperCase() }\n")

	source := "```javascript --run\nvar pkg = require('pkg')\nconsole.log(pkg.shout('hey'))\n```"

	lines, err := Assemble(context.Background(), source, Options{Filename: filepath.Join(dir, "doc.md")})
	require.NoError(t, err)
	assert.Equal(t, "⇒ HEY!", lines[len(lines)-1])
}

func TestRequireMissingModule(t *testing.T) {
	source := "```javascript --run\nrequire('./nope')\n```"

	_, err := Assemble(context.Background(), source, Options{Filename: filepath.Join(t.TempDir(), "doc.md")})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr), "got %v", err)
	assert.Equal(t, 2, execErr.Line)
	assert.Contains(t, execErr.Message, "Invalid module")
	assert.NotContains(t, execErr.Message, "GoError: GoError")
}

func TestRequireMissingNestedModule(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib/a.js", "module.exports = require('./gone')\n")

	source := "```javascript --run\nrequire('./lib/a')\n```"

	_, err := Assemble(context.Background(), source, Options{Filename: filepath.Join(dir, "doc.md")})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr), "got %v", err)
	assert.Contains(t, execErr.Message, "Invalid module")
	assert.NotContains(t, execErr.Message, "GoError: GoError")
}

func writeModule(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	source := "```javascript --run\nwhile (true) {}\n```"
	_, err := Assemble(ctx, source, Options{Filename: "loop.md"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "block at line 1 interrupted")
}

func TestAssembleStopsAtFirstError(t *testing.T) {
	source := "```javascript --run\nconsole.log('first')\n```\n```javascript --run\nnope()\n```\n```javascript --run\nconsole.log('never')\n```"

	lines, err := Assemble(context.Background(), source, Options{Filename: "test.md"})
	require.Error(t, err)
	assert.Nil(t, lines)
}
