// Package symtab implements an open-addressing hash table keyed by byte
// strings, with quadratic (triangular) probing and tombstone deletion. The
// assembler uses it to map label names to output offsets.
package symtab

import (
	"bytes"
	"errors"
	"fmt"
	"math"
)

// Reserved hash values. A computed hash that lands on one of them is moved
// past them before use.
const (
	hashEmpty     = 0
	hashTombstone = 1
)

// Defaults used when no option overrides them.
const (
	DefaultCapacity        = 16
	DefaultResizeThreshold = 0.5
	DefaultResizeRate      = 2.0
)

var (
	// ErrExists is returned by Insert when the key is already present.
	ErrExists = errors.New("key already exists")
	// ErrInvalidOption is returned by New for unusable settings.
	ErrInvalidOption = errors.New("invalid table option")
)

// HashFunc hashes a key.
type HashFunc func(key []byte) uint64

// EqualFunc compares two keys.
type EqualFunc func(a, b []byte) bool

type slot[V any] struct {
	hash  uint64
	key   []byte
	value V
}

// Table maps byte-string keys to values of type V. It is not safe for
// concurrent use.
type Table[V any] struct {
	slots     []slot[V]
	mask      uint64
	live      int
	threshold float64
	rate      float64
	hash      HashFunc
	equal     EqualFunc
}

// New creates an empty table.
func New[V any](opts ...Option) (*Table[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	t := &Table[V]{
		threshold: o.threshold,
		rate:      o.rate,
		hash:      o.hash,
		equal:     o.equal,
	}
	if t.hash == nil {
		t.hash = djb(o.keySize)
	}
	if t.equal == nil {
		t.equal = rawEqual(o.keySize)
	}
	t.alloc(o.capacity)
	return t, nil
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	return t.live
}

// Cap returns the number of slots.
func (t *Table[V]) Cap() int {
	return len(t.slots)
}

// Lookup returns the value stored under key.
func (t *Table[V]) Lookup(key []byte) (V, bool) {
	i, _ := t.find(key, t.hashOf(key))
	if i < 0 {
		var zero V
		return zero, false
	}
	return t.slots[i].value, true
}

// Insert adds key with value v. It fails with ErrExists if key is present.
func (t *Table[V]) Insert(key []byte, v V) error {
	h := t.hashOf(key)
	found, free := t.find(key, h)
	if found >= 0 {
		return fmt.Errorf("%q: %w", key, ErrExists)
	}
	t.place(key, h, v, free)
	return nil
}

// Set stores v under key, replacing any existing value.
func (t *Table[V]) Set(key []byte, v V) {
	h := t.hashOf(key)
	found, free := t.find(key, h)
	if found >= 0 {
		t.slots[found].value = v
		return
	}
	t.place(key, h, v, free)
}

// Remove deletes key and reports whether it was present. The slot becomes a
// tombstone so probe chains running through it stay intact.
func (t *Table[V]) Remove(key []byte) bool {
	i, _ := t.find(key, t.hashOf(key))
	if i < 0 {
		return false
	}
	t.slots[i] = slot[V]{hash: hashTombstone}
	t.live--
	return true
}

// Range calls fn for every live entry in slot order until fn returns false.
// The key slice must not be modified.
func (t *Table[V]) Range(fn func(key []byte, v V) bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.hash == hashEmpty || s.hash == hashTombstone {
			continue
		}
		if !fn(s.key, s.value) {
			return
		}
	}
}

func (t *Table[V]) hashOf(key []byte) uint64 {
	h := t.hash(key)
	if h <= hashTombstone {
		h += 2
	}
	return h
}

// find walks the probe sequence for key. It returns the index of the
// matching slot, or -1, and the first empty or tombstone slot seen, or -1.
//
// Probe i visits (h + (i+i²)/2) mod p where p is the slot count rounded up
// to a power of two. Over p steps that sequence hits every index below p
// exactly once; indices past the real slot count are skipped.
func (t *Table[V]) find(key []byte, h uint64) (found, free int) {
	free = -1
	n := uint64(len(t.slots))
	for i := uint64(0); i <= t.mask; i++ {
		p := (h + (i+i*i)/2) & t.mask
		if p >= n {
			continue
		}
		s := &t.slots[p]
		switch s.hash {
		case hashEmpty:
			if free < 0 {
				free = int(p)
			}
			return -1, free
		case hashTombstone:
			if free < 0 {
				free = int(p)
			}
		default:
			if s.hash == h && t.equal(s.key, key) {
				return int(p), free
			}
		}
	}
	return -1, free
}

func (t *Table[V]) place(key []byte, h uint64, v V, free int) {
	if free < 0 {
		t.grow()
		_, free = t.find(key, h)
	}
	t.slots[free] = slot[V]{hash: h, key: bytes.Clone(key), value: v}
	t.live++
	if float64(t.live)/float64(len(t.slots)) >= t.threshold {
		t.grow()
	}
}

func (t *Table[V]) alloc(capacity int) {
	t.slots = make([]slot[V], capacity)
	t.mask = nextPow2(uint64(capacity)) - 1
}

// grow rehashes every live entry into fresh storage rate times larger.
func (t *Table[V]) grow() {
	old := t.slots
	capacity := int(math.Ceil(float64(len(old)) * t.rate))
	if capacity <= len(old) {
		capacity = len(old) + 1
	}
	t.alloc(capacity)
	for i := range old {
		s := &old[i]
		if s.hash == hashEmpty || s.hash == hashTombstone {
			continue
		}
		_, free := t.find(s.key, s.hash)
		t.slots[free] = *s
	}
}

func nextPow2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// djb returns the default hash: a multiply-by-33-and-add accumulator seeded
// with 5381, over the first size bytes of the key, or all of it when size is 0.
func djb(size int) HashFunc {
	return func(key []byte) uint64 {
		key = prefix(key, size)
		h := uint64(5381)
		for _, c := range key {
			h = h*33 + uint64(c)
		}
		return h
	}
}

func rawEqual(size int) EqualFunc {
	return func(a, b []byte) bool {
		return bytes.Equal(prefix(a, size), prefix(b, size))
	}
}

func prefix(key []byte, size int) []byte {
	if size > 0 && size < len(key) {
		return key[:size]
	}
	return key
}
