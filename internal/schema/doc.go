// Package schema describes fixture record types.
//
// A Type names a record kind, lists its fields and carries the optional
// write hooks a durable backend runs. Types are compiled from CUE, defined
// directly in Go, or created open (no declared fields) when a definition
// script registers a name nothing has declared.
//
// Identity of a record type is the *Type pointer: two Types with equal
// fields are still different types. The Catalog hands out one *Type per
// name so that every script that registers "Billing::Plan" binds the same
// store.
package schema
