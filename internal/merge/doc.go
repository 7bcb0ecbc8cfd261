// Package merge imports source architecture documents into one target model.
//
// The merge works purely by name: there are no identifiers shared across
// documents. Resolve is the single read-only query that maps a name to an
// element of the target; MergeSoftwareSystem, MergePerson and
// CloneRelationship are the mutations built on top of it; Importer drives
// them over a list of documents.
//
// Every operation takes the target model as an explicit parameter. The
// package holds no state between calls, so separate merges never interfere.
//
// Nothing here aborts a run for one bad input. Skipped systems, filtered
// elements and relationships with unresolved endpoints are reported through
// the logger and counted in Stats.
package merge
