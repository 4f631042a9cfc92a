package domain

import "time"

type User struct {
	ID           string
	Email        string // case-normalized, unique
	PasswordHash string // argon2id PHC encoded
	Role         Role
	TOTPSecret   *string // base32 TOTP secret (nil until first issued)
	TOTPEnabled  bool    // set once the user has proven possession of the secret
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
