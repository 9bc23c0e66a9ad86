// Package nft mirrors settled entitlements into a collectible registry. The
// registry is decorative: settlement correctness never depends on it, and a
// failed mirror write is reported back on the purchase receipt only.
package nft

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"openshelf/native/market"
)

// Collectible is one mirrored entitlement: the latest known state of what an
// owner holds for a book, together with the settlement reference that last
// touched it.
type Collectible struct {
	BookID       string `json:"bookId"`
	Owner        string `json:"owner"`
	Kind         string `json:"kind"`
	ChapterIndex int    `json:"chapterIndex"`
	TxRef        string `json:"txRef"`
	MintedAt     int64  `json:"mintedAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// Registry persists collectibles in sqlite keyed by (book, owner).
type Registry struct {
	db    *sql.DB
	nowFn func() int64
}

// NewRegistry opens (or creates) the registry database at path.
func NewRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	registry := &Registry{db: db, nowFn: func() int64 { return time.Now().Unix() }}
	if err := registry.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return registry, nil
}

func (r *Registry) init() error {
	schema := `CREATE TABLE IF NOT EXISTS collectibles (
        book_id TEXT NOT NULL,
        owner TEXT NOT NULL,
        kind TEXT NOT NULL,
        chapter_index INTEGER NOT NULL DEFAULT -1,
        tx_ref TEXT NOT NULL,
        minted_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL,
        PRIMARY KEY(book_id, owner)
    );`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("init collectible schema: %w", err)
	}
	return nil
}

// SetNowFunc overrides the time source for deterministic testing.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Notify implements market.Synchronizer. The first notification for a
// (book, owner) pair mints the collectible; later ones upgrade it in place,
// e.g. from a chapter entitlement to the full book.
func (r *Registry) Notify(bookID [32]byte, owner [20]byte, kind market.PurchaseKind, txRef string) error {
	kindLabel := "full_book"
	chapterIndex := -1
	if index, ok := kind.ChapterIndex(); ok {
		kindLabel = "chapter"
		chapterIndex = int(index)
	}
	now := r.nowFn()
	_, err := r.db.Exec(`
        INSERT INTO collectibles (book_id, owner, kind, chapter_index, tx_ref, minted_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(book_id, owner) DO UPDATE SET
            kind = excluded.kind,
            chapter_index = excluded.chapter_index,
            tx_ref = excluded.tx_ref,
            updated_at = excluded.updated_at`,
		hexKey(bookID[:]), hexKey(owner[:]), kindLabel, chapterIndex, txRef, now, now,
	)
	if err != nil {
		return fmt.Errorf("mirror collectible: %w", err)
	}
	return nil
}

// OwnerCollectibles lists every collectible minted for the owner, newest
// update first.
func (r *Registry) OwnerCollectibles(owner [20]byte) ([]Collectible, error) {
	rows, err := r.db.Query(`
        SELECT book_id, owner, kind, chapter_index, tx_ref, minted_at, updated_at
        FROM collectibles WHERE owner = ? ORDER BY updated_at DESC, book_id`,
		hexKey(owner[:]),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Collectible
	for rows.Next() {
		var c Collectible
		if err := rows.Scan(&c.BookID, &c.Owner, &c.Kind, &c.ChapterIndex, &c.TxRef, &c.MintedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func hexKey(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
