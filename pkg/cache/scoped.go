package cache

// ScopedKeyer prefixes every key of an inner Keyer, giving callers separate
// namespaces in one shared backend.
//
//	// Keys for one benchmark campaign
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "bench:2025-q3:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey generates a prefixed result key.
func (k *ScopedKeyer) ResultKey(opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(opts)
}

// ModelKey generates a prefixed model key.
func (k *ScopedKeyer) ModelKey(name string) string {
	return k.prefix + k.inner.ModelKey(name)
}

// ModelIndexKey generates the prefixed model index key.
func (k *ScopedKeyer) ModelIndexKey() string {
	return k.prefix + k.inner.ModelIndexKey()
}
