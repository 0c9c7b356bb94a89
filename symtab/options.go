package symtab

import "fmt"

type options struct {
	capacity  int
	threshold float64
	rate      float64
	keySize   int
	hash      HashFunc
	equal     EqualFunc
}

func defaultOptions() options {
	return options{
		capacity:  DefaultCapacity,
		threshold: DefaultResizeThreshold,
		rate:      DefaultResizeRate,
	}
}

func (o options) validate() error {
	switch {
	case o.capacity < 1:
		return fmt.Errorf("%w: capacity %d", ErrInvalidOption, o.capacity)
	case o.threshold <= 0 || o.threshold > 1:
		return fmt.Errorf("%w: resize threshold %g not in (0,1]", ErrInvalidOption, o.threshold)
	case o.rate <= 1:
		return fmt.Errorf("%w: resize rate %g must exceed 1", ErrInvalidOption, o.rate)
	case o.keySize < 0:
		return fmt.Errorf("%w: key size %d", ErrInvalidOption, o.keySize)
	}
	return nil
}

// Option configures a Table.
type Option func(*options)

// WithCapacity sets the initial slot count. It need not be a power of two.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithResizeThreshold sets the load factor that triggers growth.
func WithResizeThreshold(f float64) Option {
	return func(o *options) { o.threshold = f }
}

// WithResizeRate sets the growth multiplier.
func WithResizeRate(f float64) Option {
	return func(o *options) { o.rate = f }
}

// WithKeySize limits the default hash and equality to the first n bytes of
// each key. Zero means the whole key.
func WithKeySize(n int) Option {
	return func(o *options) { o.keySize = n }
}

// WithHash replaces the default hash.
func WithHash(fn HashFunc) Option {
	return func(o *options) { o.hash = fn }
}

// WithEqual replaces the default key comparison.
func WithEqual(fn EqualFunc) Option {
	return func(o *options) { o.equal = fn }
}
