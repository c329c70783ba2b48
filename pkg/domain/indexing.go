package domain

import (
	"fmt"
	"reflect"
)

// Definition describes one secondary index: which component type C it
// watches and how a component is projected into an index key K.
//
// Key must be pure and total. It is called once per changed entity on
// every refresh; a panic or a non-deterministic result is a bug in the
// definition and is not recovered by the index.
type Definition[C any, K comparable] interface {
	Key(c C) K
}

// Named is implemented by definitions that carry a human readable name.
// The name is part of the index identity and shows up in logs and metrics.
type Named interface {
	IndexName() string
}

// Extractor is implemented by definitions backed by a plain function. The
// returned value identifies that function's code.
type Extractor interface {
	Extractor() uintptr
}

// FuncDefinition adapts a plain extraction function to a Definition.
type FuncDefinition[C any, K comparable] struct {
	name string
	fn   func(C) K
}

// Func creates a named Definition from fn. Two Func definitions share one
// index store only when they have the same component type, key type, name
// and function. Closures built from the same function literal count as
// the same function, so give them distinct names.
func Func[C any, K comparable](name string, fn func(C) K) FuncDefinition[C, K] {
	return FuncDefinition[C, K]{name: name, fn: fn}
}

func (d FuncDefinition[C, K]) Key(c C) K {
	return d.fn(c)
}

func (d FuncDefinition[C, K]) IndexName() string {
	return d.name
}

func (d FuncDefinition[C, K]) Extractor() uintptr {
	if d.fn == nil {
		return 0
	}
	return reflect.ValueOf(d.fn).Pointer()
}

// IndexName returns the name of def: its own name if it implements Named,
// otherwise its Go type.
func IndexName(def any) string {
	if n, ok := def.(Named); ok && n.IndexName() != "" {
		return n.IndexName()
	}
	return fmt.Sprintf("%T", def)
}
