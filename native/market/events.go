package market

import (
	"openshelf/core/events"
	"openshelf/core/types"
)

const (
	// EventTypeBookAdded is emitted when an author registers a new book.
	EventTypeBookAdded = "market.book.added"
	// EventTypeChapterAdded is emitted when an author appends or replaces a chapter.
	EventTypeChapterAdded = "market.chapter.added"
	// EventTypePurchaseSettled is emitted once a purchase has fully committed.
	EventTypePurchaseSettled = "market.purchase.settled"
	// EventTypeStakeDeposited is emitted when a reader stakes behind a book.
	EventTypeStakeDeposited = "market.stake.deposited"
	// EventTypeEarningsClaimed is emitted when a staker withdraws earnings.
	EventTypeEarningsClaimed = "market.stake.claimed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// BookAddedEvent returns the structured payload for book registration.
func BookAddedEvent(bookID string, author string, title string) *types.Event {
	return &types.Event{
		Type: EventTypeBookAdded,
		Attributes: map[string]string{
			"bookId": bookID,
			"author": author,
			"title":  title,
		},
	}
}

// ChapterAddedEvent returns the structured payload for chapter additions.
func ChapterAddedEvent(bookID string, index string, price string, fullPrice string) *types.Event {
	return &types.Event{
		Type: EventTypeChapterAdded,
		Attributes: map[string]string{
			"bookId":    bookID,
			"index":     index,
			"price":     price,
			"fullPrice": fullPrice,
		},
	}
}

// PurchaseSettledEvent captures a committed settlement with its final
// entitlement kind and the shares that moved.
func PurchaseSettledEvent(bookID string, buyer string, kind string, price string, authorShare string, stakerShare string, platformShare string, txRef string) *types.Event {
	return &types.Event{
		Type: EventTypePurchaseSettled,
		Attributes: map[string]string{
			"bookId":        bookID,
			"buyer":         buyer,
			"kind":          kind,
			"price":         price,
			"authorShare":   authorShare,
			"stakerShare":   stakerShare,
			"platformShare": platformShare,
			"txRef":         txRef,
		},
	}
}

// StakeDepositedEvent captures a stake deposit and the resulting totals.
func StakeDepositedEvent(bookID string, staker string, amount string, totalStake string) *types.Event {
	return &types.Event{
		Type: EventTypeStakeDeposited,
		Attributes: map[string]string{
			"bookId":     bookID,
			"staker":     staker,
			"amount":     amount,
			"totalStake": totalStake,
		},
	}
}

// EarningsClaimedEvent captures an earnings withdrawal.
func EarningsClaimedEvent(bookID string, staker string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeEarningsClaimed,
		Attributes: map[string]string{
			"bookId": bookID,
			"staker": staker,
			"amount": amount,
		},
	}
}
