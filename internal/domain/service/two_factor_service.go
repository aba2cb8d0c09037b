package service

// TOTPSecret is a freshly generated authenticator secret together with its
// otpauth:// provisioning URI.
type TOTPSecret struct {
	Secret string
	URI    string
}

// TwoFactorService generates and verifies RFC 6238 time-based one-time passwords.
type TwoFactorService interface {
	// GenerateSecret creates a new base32 secret labelled with the issuer and the account email.
	GenerateSecret(email string) (*TOTPSecret, error)

	// Verify reports whether code is valid for secret at the current time,
	// accepting one 30 second step either side.
	Verify(email, secret, code string) bool
}
