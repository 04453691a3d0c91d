// Package build provides the build pipeline for langdocs.
//
// A Driver discovers language directories, renders docs, tutorials and
// examples for every language in parallel, assembles the support matrix from
// the resources each language produced, and writes supported.json together
// with a build manifest. All execution paths (CLI build, watch mode, the
// periodic full rebuild) route through Driver.
//
// Per-language results are cached so that Rebuild can refresh one kind of
// one language and regenerate the matrix without touching anything else.
package build
