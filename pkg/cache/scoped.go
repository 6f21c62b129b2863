package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several scenes (for
// example one per served manifest) can share a backend without collisions.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "scene:"+sessionID+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ManifestKey(source string) string {
	return k.prefix + k.inner.ManifestKey(source)
}

func (k *ScopedKeyer) LayoutKey(manifestHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(manifestHash, opts)
}

func (k *ScopedKeyer) IconKey(url string) string {
	return k.prefix + k.inner.IconKey(url)
}
