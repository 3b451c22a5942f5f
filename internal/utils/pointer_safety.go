package utils

// Ptr returns a pointer to a copy of v, for the optional fields of partial updates.
func Ptr[T any](v T) *T {
	return &v
}
