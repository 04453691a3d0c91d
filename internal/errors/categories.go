package errors

import "maps"

// ErrorCategory groups errors by the part of the system that raised them.
type ErrorCategory string

// Categories raised while reading configuration and sources.
const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryFileSystem ErrorCategory = "filesystem"
)

// Categories raised while producing artifacts.
const (
	CategoryRender  ErrorCategory = "render"
	CategoryBundle  ErrorCategory = "bundle"
	CategoryBuild   ErrorCategory = "build"
	CategoryHistory ErrorCategory = "history"
)

// Categories raised by collaborators outside the build.
const (
	CategoryGit      ErrorCategory = "git"
	CategoryNotify   ErrorCategory = "notify"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity decides whether a build continues.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext holds the structured fields of an error: path, lang, id, ...
type ErrorContext map[string]any

// Set stores value under key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Merge returns a new context holding both, other winning on conflicts.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
