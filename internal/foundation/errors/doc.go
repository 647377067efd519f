// Package errors provides the classified error primitives used across sitepipe.
//
// Every failure that crosses a package boundary is either a plain wrapped error
// or a ClassifiedError carrying a category, a severity and structured context
// (pipeline, module, document source). The CLI adapter maps categories to exit
// codes so that a failed build can be told apart from a bad configuration.
//
// Example usage:
//
//	err := errors.ConfigError("duplicate pipeline name").
//		WithContext("pipeline", name).
//		Build()
package errors
