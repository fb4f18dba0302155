// Package resourcetest provides reusable contract tests for resourcecore.Store
// snapshot backends.
//
// Store implementations can use this package from their own tests without
// importing root test helpers.
//
// Example pattern (backend test):
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := resource.NewRedisStore(context.Background(), client)
//
//		// Namespace keys per test and tune TTL waits for backend semantics as needed.
//		resourcetest.RunStoreContract(t, store, resourcetest.Options{
//			CaseName: t.Name(),
//			TTL:      time.Second,
//			TTLWait:  1500 * time.Millisecond,
//		})
//	}
package resourcetest
