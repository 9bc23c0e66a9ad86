package storage

import "sync"

// Overlay stages writes on top of a backing database. Reads fall through to
// the backing store until a key has been written. Nothing reaches the backing
// store before Flush, so a failed operation can simply drop the overlay and
// leave no partial effect behind.
type Overlay struct {
	mu      sync.RWMutex
	backing Database
	writes  map[string][]byte
}

// NewOverlay creates an overlay over the supplied backing database.
func NewOverlay(backing Database) *Overlay {
	return &Overlay{
		backing: backing,
		writes:  make(map[string][]byte),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes[string(key)] = value
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	value, ok := o.writes[string(key)]
	o.mu.RUnlock()
	if ok {
		return value, nil
	}
	return o.backing.Get(key)
}

// Close satisfies the Database interface. The backing store stays open.
func (o *Overlay) Close() {}

// Flush commits every staged write to the backing database in one pass.
func (o *Overlay) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, value := range o.writes {
		if err := o.backing.Put([]byte(key), value); err != nil {
			return err
		}
	}
	o.writes = make(map[string][]byte)
	return nil
}
