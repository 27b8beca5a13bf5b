// Package report defines the request model for report queries.
//
// This package contains type definitions only. The compiler, the domain
// orchestrators and the engine all import report; report imports nothing
// internal. Keeping the request model at the bottom of the import graph
// means every layer speaks the same vocabulary.
//
// Key constraints:
//   - FieldValue is a sealed interface. Only types in this package
//     implement it, so translators can switch over it exhaustively.
//   - Raw user input stays a RawValue until the normalizer types it.
//   - Entity references are MongoDB ObjectIDs once normalized.
//   - Instants are always UTC once normalized.
package report
