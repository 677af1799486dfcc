// Package diag defines the diagnostic model shared by graph loading and
// clash analysis.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures for findings
//     produced by the loader and the clash checker.
//   - Offer light-weight utilities (Reporter, Bag) that let producers
//     emit diagnostics without coupling to storage or formatting layers.
//
// # Scope
//
// Package diag performs no formatting, IO, or CLI integration; rendering
// lives in internal/diagfmt, orchestration in internal/driver.
//
// # Data model
//
// Diagnostic is the central record: Severity (Info/Warning/Error), Code
// (compact numeric identifier with a stable range-prefixed string form),
// Message, the primary source.Span, and optional Notes. Notes should add
// new context (e.g. "conflicting declaration here") rather than repeat
// the diagnostic message; clash diagnostics use them to cross-reference
// the other declaration site.
//
// # Emitting diagnostics
//
// Producers use a diag.Reporter to decouple emission from storage:
// construct a ReportBuilder via ReportError/ReportWarning/ReportInfo,
// chain WithNote, then Emit. BagReporter aggregates into a Bag, which
// supports sorting, deduplication and merging; DedupReporter suppresses
// exact repeats. Keep the data model deterministic so the CLI can safely
// serialise diagnostics for caching and golden tests.
package diag
