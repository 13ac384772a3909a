// Package registry binds record types to stores and exposes them as
// label-addressed accessors.
//
// A Registry maps provider names to store constructors and memoizes exactly
// one Store per (record type, provider) pair for its whole lifetime. Each
// provider has a Namespace; registering a type in a Namespace exposes its
// Store as an Accessor under the type's accessor name ("Billing::Plan" →
// "billing_plans"). Every Upsert through an Accessor defines or refreshes a
// label entry that resolves to Store.Find(label).
//
// The registry is an explicit object: the loader and every consumer receive
// it by reference. All of its state is guarded for concurrent readers.
package registry
