// Package internal holds the pieces of the gpath command line tool that
// outlive a single run.
//
// Cache persists the findings of each document file in a gob file. Entries
// belong to the ruleset fingerprint they were computed under and are dropped
// when the document content changes; size and modification time are checked
// first, the sha256 digest only when they differ.
//
// NolintManager finds the spans of a document where findings are
// suppressed, marked by nolint annotations or a nolint document attribute.
//
// Watcher reruns a handler when document files change, folding a burst of
// writes to one file into a single call.
//
// This package is intended for internal use within the gpath tool and should
// not be imported by external packages.
package internal
