package domain

import "time"

// CacheEntry is the integrity manifest of one published cache entry. It is
// written into the entry directory before the atomic publish and never
// mutated afterwards.
type CacheEntry struct {
	// Name is the cached package name.
	Name PackageName `json:"name"`

	// Version is the cached version.
	Version Version `json:"version"`

	// ArchiveDigest is the xxhash digest of the fetched archive, in hex.
	ArchiveDigest string `json:"archiveDigest"`

	// ArchiveSize is the fetched archive's size in bytes.
	ArchiveSize int64 `json:"archiveSize"`

	// FetchedAt records when the entry was published.
	FetchedAt time.Time `json:"fetchedAt"`
}
