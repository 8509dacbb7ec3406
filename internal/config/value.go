package config

// Value is a resolved setting together with the layer it came from.
// `config show` prints the source column so users can see which layer won.
type Value[T any] struct {
	Value  T
	Source ConfigSource
}

// DefaultValue wraps v as a built-in default.
func DefaultValue[T any](v T) Value[T] {
	return Value[T]{Value: v, Source: SourceDefault}
}
