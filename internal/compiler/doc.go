// Package compiler turns report requests into pipeline stages.
//
// The package holds the algorithms every report domain shares. Domains
// (internal/domains/*) supply explicit field tables and compose the pieces
// below into one ordered pipeline.
//
// COMPONENTS:
//
//	Normalize        raw filter values → typed report.FieldValue
//	Translator       (field, comparator, typed value) → filter fragment
//	BuildMatch       FilterGroups → one $match body (OR within, AND across)
//	Summarize        SummarizeSpecs + aggregations → grouping stages
//	Boundaries       numeric histogram edges for manual bucketing
//	TranslateSort    ordered SortSpecs → ordered sort document
//	ValidateSort     rejects parallel array-backed sort keys
//	ValidateRequest  structural request checks, all errors collected
//
// CRITICAL: compilation is pure. Nothing here performs I/O. Metadata the
// compiler needs (custom-field allow-list, array-typed custom fields,
// bucket boundaries) arrives pre-resolved through Env.
//
// CRITICAL: a nil fragment from the Translator means "no constraint" and
// the clause is dropped, never turned into an empty $match.
//
// Timezone arithmetic goes through calendar.Shifter only; the rest of the
// package is timezone-agnostic.
package compiler
