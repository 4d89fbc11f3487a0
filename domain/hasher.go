package domain

// Hasher maps arbitrary bytes to a fixed-size opaque key. The pipeline uses
// it to keep quota identifiers bounded regardless of route or user id length.
type Hasher interface {
	Hash(data []byte) string
}
