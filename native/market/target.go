package market

import "fmt"

type purchaseKind uint8

const (
	kindChapter purchaseKind = iota
	kindFullBook
)

// PurchaseKind is a tagged variant describing either a single chapter or the
// whole book. It doubles as the entitlement kind reported after settlement: a
// chapter purchase that completes the set is reported as a full-book
// entitlement even though only the chapter price was charged.
type PurchaseKind struct {
	kind    purchaseKind
	chapter uint8
}

// ChapterPurchase targets the chapter at the given index.
func ChapterPurchase(index uint8) PurchaseKind {
	return PurchaseKind{kind: kindChapter, chapter: index}
}

// FullBookPurchase targets every chapter the buyer does not yet hold.
func FullBookPurchase() PurchaseKind {
	return PurchaseKind{kind: kindFullBook}
}

// IsFullBook reports whether the variant is the full-book case.
func (k PurchaseKind) IsFullBook() bool { return k.kind == kindFullBook }

// ChapterIndex returns the chapter index and true for the chapter case.
func (k PurchaseKind) ChapterIndex() (uint8, bool) {
	if k.kind != kindChapter {
		return 0, false
	}
	return k.chapter, true
}

// String renders the variant for logs and event attributes.
func (k PurchaseKind) String() string {
	if k.kind == kindFullBook {
		return "full_book"
	}
	return fmt.Sprintf("chapter:%d", k.chapter)
}
