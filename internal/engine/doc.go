// Package engine executes report requests.
//
// A request is compiled in two phases when its summary buckets numeric
// fields: the first compile reports the bucket probes it needs, the probes
// run against the filtered population, and the second compile uses their
// bins. Metadata lookups and bucket probes run concurrently; the report
// pipeline itself always runs after all of them have finished.
//
// The engine never writes to the document store.
package engine
