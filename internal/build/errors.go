package build

import "errors"

// Sentinel errors classifying high-level pipeline failures. They are wrapped
// with context at the call site.
var (
	ErrDiscovery   = errors.New("langdocs: discovery error")
	ErrOutput      = errors.New("langdocs: output error")
	ErrUnknownKind = errors.New("langdocs: unknown kind")
)
