package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestOverlayStagesWritesUntilFlush(t *testing.T) {
	backing := NewMemDB()
	if err := backing.Put([]byte("a"), []byte("base")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	overlay := NewOverlay(backing)
	if err := overlay.Put([]byte("a"), []byte("staged")); err != nil {
		t.Fatalf("overlay put: %v", err)
	}
	if err := overlay.Put([]byte("b"), []byte("new")); err != nil {
		t.Fatalf("overlay put: %v", err)
	}

	// Reads through the overlay see staged values.
	got, err := overlay.Get([]byte("a"))
	if err != nil {
		t.Fatalf("overlay get: %v", err)
	}
	if !bytes.Equal(got, []byte("staged")) {
		t.Fatalf("overlay read %q, want staged", got)
	}

	// The backing store is untouched before Flush.
	got, err = backing.Get([]byte("a"))
	if err != nil {
		t.Fatalf("backing get: %v", err)
	}
	if !bytes.Equal(got, []byte("base")) {
		t.Fatalf("backing read %q before flush", got)
	}
	if _, err := backing.Get([]byte("b")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("staged key leaked to backing: %v", err)
	}

	if err := overlay.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got, err = backing.Get([]byte("a"))
	if err != nil {
		t.Fatalf("backing get: %v", err)
	}
	if !bytes.Equal(got, []byte("staged")) {
		t.Fatalf("backing read %q after flush", got)
	}
	got, err = backing.Get([]byte("b"))
	if err != nil {
		t.Fatalf("backing get: %v", err)
	}
	if !bytes.Equal(got, []byte("new")) {
		t.Fatalf("backing read %q after flush", got)
	}
}

func TestOverlayFallsThroughToBacking(t *testing.T) {
	backing := NewMemDB()
	if err := backing.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	overlay := NewOverlay(backing)
	got, err := overlay.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("read %q, want v", got)
	}
	if _, err := overlay.Get([]byte("missing")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemDBOverwrite(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("k"), []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Put([]byte("k"), []byte("two")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("two")) {
		t.Fatalf("read %q, want two", got)
	}
}
