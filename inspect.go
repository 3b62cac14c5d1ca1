package runmd

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

const (
	inspectDepth     = 2  // Nesting below this prints [Object] / [Array]
	inspectLineWidth = 72 // Wider collections break one entry per line
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// formatArg renders one console argument: strings verbatim, everything else
// through inspect.
func formatArg(vm *goja.Runtime, v goja.Value) string {
	if _, isObj := v.(*goja.Object); !isObj && v != nil {
		if s, ok := v.Export().(string); ok {
			return s
		}
	}
	return inspect(vm, v)
}

// inspect formats a value the way Node's util.inspect does for the common
// cases: primitives, arrays, typed arrays, plain objects, class instances,
// maps, sets, promises, functions, errors, dates and regular expressions.
func inspect(vm *goja.Runtime, v goja.Value) string {
	in := &inspector{vm: vm}
	return in.value(v, 0, "")
}

type inspector struct {
	vm   *goja.Runtime
	seen []*goja.Object
}

func (in *inspector) value(v goja.Value, depth int, indent string) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return primitive(v)
	}

	for _, o := range in.seen {
		if o.SameAs(obj) {
			return "[Circular]"
		}
	}

	if _, isFn := goja.AssertFunction(obj); isFn {
		if name := obj.Get("name"); name != nil && name.String() != "" {
			return "[Function: " + name.String() + "]"
		}
		return "[Function (anonymous)]"
	}

	switch obj.ClassName() {
	case "Error":
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			return strings.TrimRight(stack.String(), "\n")
		}
		return obj.String()
	case "RegExp":
		return obj.String()
	case "Date":
		if iso, ok := in.call(obj, "toISOString"); ok {
			return iso.String()
		}
		return obj.String()
	case "String", "Number", "Boolean":
		if prim, ok := in.call(obj, "valueOf"); ok {
			return "[" + obj.ClassName() + ": " + in.value(prim, depth, indent) + "]"
		}
	}

	in.seen = append(in.seen, obj)
	defer func() { in.seen = in.seen[:len(in.seen)-1] }()
	next := indent + "  "

	switch obj.ClassName() {
	case "Map":
		return in.mapEntries(obj, depth, indent)
	case "Set":
		return in.setEntries(obj, depth, indent)
	case "Promise":
		if p, ok := obj.Export().(*goja.Promise); ok {
			return in.promise(p, depth, indent)
		}
	case "Array":
		if depth > inspectDepth {
			return "[Array]"
		}
		return join("[", "]", in.elements(obj, depth, next), indent)
	}

	prefix := constructorName(obj)
	if isTypedArray(obj) {
		if depth > inspectDepth {
			return "[" + prefix + "]"
		}
		n := int(obj.Get("length").ToInteger())
		return fmt.Sprintf("%s(%d) ", prefix, n) + join("[", "]", in.elements(obj, depth, next), indent)
	}

	if depth > inspectDepth {
		if prefix == "" {
			return "[Object]"
		}
		return "[" + prefix + "]"
	}

	keys := obj.Keys()
	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, key(k)+": "+in.value(obj.Get(k), depth+1, next))
	}

	out := join("{", "}", entries, indent)
	if prefix != "" {
		out = prefix + " " + out
	}
	return out
}

// elements lists array entries, folding runs of holes the way Node does.
func (in *inspector) elements(obj *goja.Object, depth int, indent string) []string {
	n := int(obj.Get("length").ToInteger())
	entries := make([]string, 0, n)
	for i := 0; i < n; {
		if obj.Get(strconv.Itoa(i)) != nil {
			entries = append(entries, in.value(obj.Get(strconv.Itoa(i)), depth+1, indent))
			i++
			continue
		}

		j := i
		for j < n && obj.Get(strconv.Itoa(j)) == nil {
			j++
		}
		if holes := j - i; holes == 1 {
			entries = append(entries, "<1 empty item>")
		} else {
			entries = append(entries, fmt.Sprintf("<%d empty items>", holes))
		}
		i = j
	}
	return entries
}

func (in *inspector) mapEntries(obj *goja.Object, depth int, indent string) string {
	size := int(obj.Get("size").ToInteger())
	if depth > inspectDepth {
		return "[Map]"
	}

	next := indent + "  "
	var entries []string
	in.forEach(obj, func(value, k goja.Value) {
		entries = append(entries, in.value(k, depth+1, next)+" => "+in.value(value, depth+1, next))
	})
	return fmt.Sprintf("Map(%d) ", size) + join("{", "}", entries, indent)
}

func (in *inspector) setEntries(obj *goja.Object, depth int, indent string) string {
	size := int(obj.Get("size").ToInteger())
	if depth > inspectDepth {
		return "[Set]"
	}

	next := indent + "  "
	var entries []string
	in.forEach(obj, func(value, _ goja.Value) {
		entries = append(entries, in.value(value, depth+1, next))
	})
	return fmt.Sprintf("Set(%d) ", size) + join("{", "}", entries, indent)
}

func (in *inspector) promise(p *goja.Promise, depth int, indent string) string {
	switch p.State() {
	case goja.PromiseStatePending:
		return "Promise { <pending> }"
	case goja.PromiseStateRejected:
		return join("Promise {", "}", []string{"<rejected> " + in.value(p.Result(), depth+1, indent+"  ")}, indent)
	}
	return join("Promise {", "}", []string{in.value(p.Result(), depth+1, indent+"  ")}, indent)
}

// forEach walks a Map or Set through its own forEach method.
func (in *inspector) forEach(obj *goja.Object, fn func(value, key goja.Value)) {
	each, ok := goja.AssertFunction(obj.Get("forEach"))
	if !ok {
		return
	}
	cb := in.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		fn(call.Argument(0), call.Argument(1))
		return goja.Undefined()
	})
	_, _ = each(obj, cb)
}

// call invokes a zero-argument method of obj.
func (in *inspector) call(obj *goja.Object, method string) (goja.Value, bool) {
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, false
	}
	v, err := fn(obj)
	return v, err == nil
}

func primitive(v goja.Value) string {
	switch x := v.Export().(type) {
	case string:
		return quote(x)
	case *big.Int:
		return x.String() + "n"
	case float64:
		if x == 0 && math.Signbit(x) {
			return "-0"
		}
	}
	return v.String()
}

// isTypedArray reports whether obj is a Uint8Array, Float64Array or
// similar view.
func isTypedArray(obj *goja.Object) bool {
	bpe := obj.Get("BYTES_PER_ELEMENT")
	return bpe != nil && !goja.IsUndefined(bpe) && obj.Get("length") != nil
}

// constructorName returns the class name for instances of anything other
// than Object.
func constructorName(obj *goja.Object) string {
	ctor, ok := obj.Get("constructor").(*goja.Object)
	if !ok {
		return ""
	}
	name := ctor.Get("name")
	if name == nil || name.String() == "Object" {
		return ""
	}
	return name.String()
}

func key(k string) string {
	if identifier.MatchString(k) {
		return k
	}
	return quote(k)
}

func join(open, close string, entries []string, indent string) string {
	if len(entries) == 0 {
		return open + close
	}

	width := len(indent) + 2
	multiline := false
	for _, e := range entries {
		width += len(e) + 2
		if strings.Contains(e, "\n") {
			multiline = true
		}
	}
	if !multiline && width <= inspectLineWidth {
		return open + " " + strings.Join(entries, ", ") + " " + close
	}

	next := indent + "  "
	return open + "\n" + next + strings.Join(entries, ",\n"+next) + "\n" + indent + close
}

// quote uses single quotes unless the string contains one and no double
// quote, matching Node.
func quote(s string) string {
	s = strings.NewReplacer("\\", "\\\\", "\n", "\\n", "\t", "\\t").Replace(s)
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
