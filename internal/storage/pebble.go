package storage

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

// Key prefixes (simulating column families)
const (
	PrefixAttempts = "att:"
)

// Column family names
const (
	CFAttempts = "attempts"
)

// Column family name to prefix mapping
var cfPrefixes = map[string]string{
	CFAttempts: PrefixAttempts,
}

// PebbleDB wraps the Pebble database
type PebbleDB struct {
	db *pebble.DB
}

// Iterator wraps Pebble's iterator
type Iterator struct {
	iter     *pebble.Iterator
	cfPrefix []byte // column family prefix (stripped from keys)
}

// NewPebbleDB creates a new PebbleDB instance
func NewPebbleDB(path string) (*PebbleDB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &PebbleDB{db: db}, nil
}

// Close closes the database
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// prefixKey creates a prefixed key for the given column family
func (p *PebbleDB) prefixKey(cf string, key []byte) ([]byte, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}
	return append([]byte(prefix), key...), nil
}

// Put stores a key-value pair in the specified column family
func (p *PebbleDB) Put(cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Set(prefixedKey, value, pebble.Sync)
}

// Get retrieves a value from the specified column family
func (p *PebbleDB) Get(cf string, key []byte) ([]byte, error) {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return nil, err
	}

	value, closer, err := p.db.Get(prefixedKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// NewPrefixIterator creates an iterator over keys with the given prefix
// in the specified column family
func (p *PebbleDB) NewPrefixIterator(cf string, prefix []byte) (*Iterator, error) {
	cfPrefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}

	full := append([]byte(cfPrefix), prefix...)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: full,
		UpperBound: prefixUpperBound(full),
	})
	if err != nil {
		return nil, err
	}
	iter.First()

	return &Iterator{iter: iter, cfPrefix: []byte(cfPrefix)}, nil
}

// Valid returns true if the iterator is positioned at a valid entry
func (i *Iterator) Valid() bool {
	return i.iter.Valid()
}

// Next advances the iterator
func (i *Iterator) Next() {
	i.iter.Next()
}

// Key returns the current key with the column family prefix stripped
func (i *Iterator) Key() []byte {
	return bytes.TrimPrefix(i.iter.Key(), i.cfPrefix)
}

// Value returns the current value
func (i *Iterator) Value() []byte {
	return i.iter.Value()
}

// Close releases the iterator
func (i *Iterator) Close() error {
	return i.iter.Close()
}

// prefixUpperBound returns the smallest key greater than all keys with
// the given prefix
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
