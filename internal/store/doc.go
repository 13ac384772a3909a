// Package store provides the label-addressed record stores behind every
// fixture accessor.
//
// A Store binds one record type to one backend and offers exactly two
// operations: Find by label and whole-record Upsert by label. Two variants
// implement it:
//   - Memory: process-lifetime map, no persistence, no hooks
//   - Persistent: delegates to a durable Backend addressed by derived id
//
// # Derived Identity
//
// A record's id is ir.LabelID(label), a domain-separated SHA-256 of the
// label. The same label always addresses the same durable row, so seeding
// an environment twice updates rather than duplicates.
//
// # Errors
//
// Find of a label that was never upserted fails with ErrNotFound. Errors a
// durable backend raises while creating or updating (hook failures included)
// are returned exactly as raised.
package store
