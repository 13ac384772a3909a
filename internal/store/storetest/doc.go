// Package storetest provides conformance tests shared by every Store variant
// and every durable Backend.
//
// A backend package wires the suite from its own _test.go file:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
//	        b, err := bolt.Open(filepath.Join(t.TempDir(), "fixtures.db"))
//	        if err != nil {
//	            t.Fatalf("Open() failed: %v", err)
//	        }
//	        t.Cleanup(func() { b.Close() })
//	        return b
//	    })
//	}
//
// RunBackendSuite also runs RunStoreSuite with store.Persistent over the
// backend, so a durable backend gets both levels of coverage.
package storetest
