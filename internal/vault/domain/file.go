package domain

import "time"

// File is the metadata record for an uploaded (client-side encrypted) blob.
// The blob itself lives in external storage; this service only tracks
// ownership and the facts policy decisions need.
type File struct {
	ID        string
	OwnerID   string
	Name      string
	MimeType  string
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShareGrant gives a specific user access to a specific file.
type ShareGrant struct {
	ID        string
	FileID    string
	UserID    string
	CreatedAt time.Time
}

// ShareLink is a time-limited, resource-scoped share token. Only the SHA-256
// fingerprint of the opaque token is stored.
type ShareLink struct {
	ID        string
	FileID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
