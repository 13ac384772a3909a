// Package ir provides the attribute value types shared by every fixture
// backend.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key constraints:
//   - NO float kind: numbers are int64
//   - canonical JSON (RFC 8785) is the only encoding used for hashing
//   - durable ids are derived from labels, never generated
package ir
