// Package errors classifies the failures of a langdocs build.
//
// Every ClassifiedError has a category and a severity. Fatal errors stop the
// build, plain errors fail the current operation, and warnings are collected
// into the build report while the build goes on with degraded output.
// An optional hint tells the user how to fix the sources or configuration.
//
//	err := errors.BundleError("descriptor lists a missing file").
//		Warning().
//		WithContext("path", p).
//		WithHint("remove the entry or add the file").
//		Build()
package errors
