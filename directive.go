package runmd

import (
	"regexp"
	"strings"
	"unicode"
)

// fenceOpen matches an executable fence: "```javascript", whitespace, then
// the runmd flags. The flags group is empty for plain javascript fences.
var fenceOpen = regexp.MustCompile("(?i)^```javascript\\s+(--.*)?")

// Directive holds the flags parsed from an executable fence line.
type Directive struct {
	Context string            // Shared context name, empty for a fresh context
	Hide    bool              // Hide the block source, keep its output
	Flags   map[string]string // Every flag as written, e.g. "run" -> "true"
	Args    []string          // Bare tokens that are not flag values
	Fence   string            // The fence line with flags stripped
}

// ParseDirective reports whether line opens an executable block and, if so,
// returns its directive.
//
// Flags follow minimist conventions: "--hide" is true, "--context=name" and
// "--context name" both set a value, "--no-hide" is false.
func ParseDirective(line string) (*Directive, bool) {
	m := fenceOpen.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return nil, false
	}

	flags, args := parseFlags(strings.Fields(m[1]))
	d := &Directive{
		Hide:  truthy(flags["hide"]),
		Flags: flags,
		Args:  args,
		Fence: stripFlags(line),
	}
	if ctx, ok := flags["context"]; ok && ctx != "true" && ctx != "false" {
		d.Context = ctx
	}
	return d, true
}

func parseFlags(tokens []string) (map[string]string, []string) {
	flags := make(map[string]string)
	var args []string

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "--":
			return flags, append(args, tokens[i+1:]...)
		case strings.HasPrefix(tok, "--") && strings.Contains(tok, "="):
			kv := strings.SplitN(tok[2:], "=", 2)
			flags[kv[0]] = kv[1]
		case strings.HasPrefix(tok, "--no-"):
			flags[tok[5:]] = "false"
		case strings.HasPrefix(tok, "--"):
			name := tok[2:]
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				flags[name] = tokens[i+1]
				i++
			} else {
				flags[name] = "true"
			}
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			for _, r := range tok[1:] {
				flags[string(r)] = "true"
			}
		default:
			args = append(args, tok)
		}
	}
	return flags, args
}

// truthy treats a missing flag, "false" and "0" as false.
func truthy(v string) bool {
	switch v {
	case "", "false", "0":
		return false
	}
	return true
}

func stripFlags(line string) string {
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		return line[:i]
	}
	return line
}

// isFence reports whether line closes a block.
func isFence(line string) bool {
	return strings.HasPrefix(line, "```")
}

// Block describes one executable block found in a document.
type Block struct {
	Line      int // 1-based line of the opening fence
	Directive *Directive
	Source    string
	Closed    bool
}

// ScanBlocks lists the executable blocks of a document without running them.
// A block left open at the end of the document is reported with Closed unset.
func ScanBlocks(source string) []*Block {
	var blocks []*Block
	var cur *Block
	var src []string

	for i, line := range strings.Split(source, "\n") {
		if cur == nil {
			if d, ok := ParseDirective(line); ok {
				cur = &Block{Line: i + 1, Directive: d}
				src = src[:0]
			}
			continue
		}
		if isFence(line) {
			cur.Source = strings.Join(src, "\n")
			cur.Closed = true
			blocks = append(blocks, cur)
			cur = nil
			continue
		}
		src = append(src, line)
	}

	if cur != nil {
		cur.Source = strings.Join(src, "\n")
		blocks = append(blocks, cur)
	}
	return blocks
}
