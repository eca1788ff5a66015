package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Keyer produces cache keys for every kind of cached artifact.
type Keyer interface {
	// HTTPKey is the key for a raw HTTP response body.
	HTTPKey(namespace, key string) string

	// ChildrenKey is the key for one page of a container's children listing.
	ChildrenKey(containerID, cursor string) string

	// BlocksKey is the key for the normalized block tree of a container.
	BlocksKey(containerID string) string

	// ImageKey is the key for fetched image bytes.
	ImageKey(url string) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// ChildrenKey hashes the container id and cursor together.
func (DefaultKeyer) ChildrenKey(containerID, cursor string) string {
	return hashKey("children", containerID, cursor)
}

// BlocksKey returns "blocks:<id>". Container ids are already canonical.
func (DefaultKeyer) BlocksKey(containerID string) string {
	return "blocks:" + containerID
}

// ImageKey hashes the image URL with its query string removed, since hosted
// file URLs carry a fresh signature on every listing.
func (DefaultKeyer) ImageKey(url string) string {
	return hashKey("image", stripQuery(url))
}

func stripQuery(u string) string {
	for i := 0; i < len(u); i++ {
		if u[i] == '?' || u[i] == '#' {
			return u[:i]
		}
	}
	return u
}

// hashKey returns "<prefix>:<sha256 of parts>". Parts are joined with a
// NUL so ("a", "bc") and ("ab", "c") differ.
func hashKey(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
