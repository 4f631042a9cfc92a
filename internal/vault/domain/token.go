package domain

import "time"

// SessionTokens is the pair issued once the second factor has been proven.
type SessionTokens struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// Enrollment carries the TOTP provisioning material handed to the client
// during signup or the setup branch of login.
type Enrollment struct {
	Secret          string // base32 secret, for manual entry
	ProvisioningURI string // otpauth:// URL for QR rendering by the client
}
