// Package model defines the architecture model that archmerge reads and
// writes: people, software systems, containers, components, and the
// relationships between them.
//
// The same Model type is used for the merge target and for every loaded
// source Document. Elements are identified by name within their sibling
// scope only; the IDs assigned here are local to one Model and are never
// used to match elements across documents.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
