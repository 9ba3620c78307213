// Package patch holds the optional-field type used by repository updates.
package patch

// Field is one optional, nullable field of a partial update. A zero Field
// leaves the stored value alone; Set replaces it; Clear nulls it.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Set returns a Field that replaces the stored value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Clear returns a Field that nulls the stored value.
func Clear[T any]() Field[T] {
	return Field[T]{Set: true}
}

// Apply writes the field into dst when it is present. The stored pointer
// never aliases the patch.
func (f Field[T]) Apply(dst **T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	v := *f.Value
	*dst = &v
}

// Arg returns the value for a SQL parameter: nil when cleared.
func (f Field[T]) Arg() any {
	if f.Value == nil {
		return nil
	}
	return *f.Value
}
