package object

import "github.com/nmxmxh/esengine/internal/values"

// Descriptor is tagged as data (Value/Writable) or accessor (Get/Set),
// sharing Enumerable/Configurable (spec.md §3).
type Descriptor struct {
	IsAccessor bool

	Value    values.Value
	Writable bool

	Get *values.Value // function value, nil if absent
	Set *values.Value

	Enumerable   bool
	Configurable bool
}

func (d Descriptor) attrs() Attributes {
	return Attributes{
		Writable:     d.Writable,
		Enumerable:   d.Enumerable,
		Configurable: d.Configurable,
		Accessor:     d.IsAccessor,
	}
}

// DataDescriptor builds a plain data property descriptor.
func DataDescriptor(v values.Value, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{Value: v, Writable: writable, Enumerable: enumerable, Configurable: configurable}
}

// AccessorDescriptor builds an accessor property descriptor.
func AccessorDescriptor(get, set *values.Value, enumerable, configurable bool) Descriptor {
	return Descriptor{IsAccessor: true, Get: get, Set: set, Enumerable: enumerable, Configurable: configurable}
}
