package cache

// ScopedKeyer wraps a Keyer with a prefix.
//
// The pipeline scopes keys by build version so that a release which changes
// packing or rendering output never serves entries written by an older one.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v1.4.0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PackKey generates a prefixed packing key.
func (k *ScopedKeyer) PackKey(opts PackKeyOpts) string {
	return k.prefix + k.inner.PackKey(opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(packHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(packHash, opts)
}
