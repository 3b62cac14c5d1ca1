package runmd

import "github.com/dop251/goja"

// LineTransform rewrites document lines as they are emitted. Returning
// keep == false drops the line.
type LineTransform interface {
	Apply(line string, inBlock bool) (out string, keep bool, err error)
}

// LineTransformFunc adapts a function to LineTransform.
type LineTransformFunc func(line string, inBlock bool) (string, bool, error)

// Apply calls f.
func (f LineTransformFunc) Apply(line string, inBlock bool) (string, bool, error) {
	return f(line, inBlock)
}

// scriptTransform is a transform installed by block code through
// setLineTransformer.
type scriptTransform struct {
	vm *goja.Runtime
	fn goja.Callable
}

func (t *scriptTransform) Apply(line string, inBlock bool) (string, bool, error) {
	v, err := t.fn(goja.Undefined(), t.vm.ToValue(line), t.vm.ToValue(inBlock))
	if err != nil {
		return "", false, err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false, nil
	}
	return v.String(), true, nil
}
