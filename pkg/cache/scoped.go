package cache

// ScopedKeyer prefixes every key of an inner [Keyer]. The CLI scopes by bot
// id and the server by workspace, so two logins sharing one backend never
// read each other's listings.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) ChildrenKey(containerID, cursor string) string {
	return k.prefix + k.inner.ChildrenKey(containerID, cursor)
}

func (k *ScopedKeyer) BlocksKey(containerID string) string {
	return k.prefix + k.inner.BlocksKey(containerID)
}

func (k *ScopedKeyer) ImageKey(url string) string {
	return k.prefix + k.inner.ImageKey(url)
}
