package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// ClassifiedError is an error with a category, a severity, structured
// context and an optional hint for the user.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	hint     string
	cause    error
	context  ErrorContext
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }
func (e *ClassifiedError) Message() string         { return e.message }
func (e *ClassifiedError) Hint() string            { return e.hint }
func (e *ClassifiedError) Cause() error            { return e.cause }
func (e *ClassifiedError) Context() ErrorContext   { return e.context }

// WithContext returns a copy of the error with key set in its context.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	next := *e
	next.context = e.context.Merge(ErrorContext{key: value})
	return &next
}

// Is matches another ClassifiedError with the same category and message, so
// that package level sentinels built with this package work with errors.Is.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

// IsFatal reports whether the error stops the build.
func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// IsWarning reports whether the build continues past the error.
func (e *ClassifiedError) IsWarning() bool {
	return e.severity == SeverityWarning || e.severity == SeverityInfo
}

// LogAttrs renders category, severity, the sorted context, the cause and
// the hint as slog attributes.
func (e *ClassifiedError) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("category", string(e.category)),
		slog.String("severity", string(e.severity)),
	}
	for _, k := range slices.Sorted(maps.Keys(e.context)) {
		attrs = append(attrs, slog.Any(k, e.context[k]))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if e.hint != "" {
		attrs = append(attrs, slog.String("hint", e.hint))
	}
	return attrs
}

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether the first classified error in the chain
// belongs to category.
func HasCategory(err error, category ErrorCategory) bool {
	classified, ok := AsClassified(err)
	return ok && classified.category == category
}

// GetCategory extracts the category from an error, or returns CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}

// GetSeverity extracts the severity from an error, or returns SeverityError.
func GetSeverity(err error) ErrorSeverity {
	if classified, ok := AsClassified(err); ok {
		return classified.severity
	}
	return SeverityError
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	return GetSeverity(err) == SeverityFatal
}

// IsWarning reports whether err is a classified warning.
func IsWarning(err error) bool {
	classified, ok := AsClassified(err)
	return ok && classified.IsWarning()
}
