package market

// Synchronizer mirrors settled entitlements into an external asset
// representation. Notify is advisory: the settlement has already committed by
// the time it runs, and a failure is recorded on the receipt instead of
// unwinding the purchase.
type Synchronizer interface {
	Notify(bookID [32]byte, owner [20]byte, kind PurchaseKind, txRef string) error
}

// NoopSynchronizer discards every notification.
type NoopSynchronizer struct{}

// Notify implements the Synchronizer interface.
func (NoopSynchronizer) Notify([32]byte, [20]byte, PurchaseKind, string) error { return nil }
