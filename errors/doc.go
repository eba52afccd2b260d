// Package errors provides structured error types for the wasm-types library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindInvalidData).
//		Detail("type section size mismatch").
//		Cause(parseErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ParseFailed("type section", cause)
//	err := errors.Instantiation(cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
