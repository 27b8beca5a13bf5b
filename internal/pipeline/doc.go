// Package pipeline defines the abstract stage IR that report compilation
// produces.
//
// A Pipeline is an ordered list of side-effect-free stages. Pipelines are
// rebuilt for every request and have no persisted identity.
//
// ARCHITECTURE:
//
//	[report request] → [compiler + domains] → [pipeline.Pipeline] → [querymongo] → mongo.Pipeline
//
// Stage bodies are already expressed as ordered bson.D documents; the IR
// pins down the stage operator and its shape so that structural rules
// (terminal $count, $skip before $limit, no empty $match) can be checked
// and the count-only variant derived without poking at raw documents.
//
// SEALED INTERFACE:
//
// Stage is sealed with a marker method. Only types in this package
// implement it, so backends can switch exhaustively:
//
//	switch s := stage.(type) {
//	case Match:
//	    // {$match: s.Filter}
//	case Group:
//	    // {$group: ...}
//	}
package pipeline
