// Package sqlite provides a SQLite-backed durable Backend for fixture
// records.
//
// Each record is one row keyed by (type_name, id), where id is the label's
// derived identifier. Attributes are stored as RFC 8785 canonical JSON so
// the same fixture always produces the same bytes on disk.
//
// Writes run in a transaction: BeforeSave runs before the row is written,
// AfterSave after it, and a failing hook rolls the write back and is
// returned unchanged.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package sqlite
