// Package foundation holds the small generic building blocks shared by the
// build pipeline and the public resolver: an Option type for lookups whose
// absence is a normal outcome, and a normalizer for string-backed enums.
package foundation
