package utils

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Set returns the value behind v and whether it is present and non-zero.
// Optional JSON fields come back as nil or "" depending on the backend.
func Set[T comparable](v *T) (T, bool) {
	value := Value(v)
	var zero T
	return value, value != zero
}
