package internal

// Panics if given non-nil error.
// Should be used only in case of non-recoverable developer error, e.g. a
// metadata table index that the table itself handed out.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}

// Returns value or panics on error. Same rules as PanicOnError.
func Must[T any](value T, err error) T {
	PanicOnError(err)
	return value
}
