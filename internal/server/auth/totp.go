package auth

import (
	"github.com/pquerna/otp/totp"
)

// generateTOTPSecret enrolls a fresh TOTP secret for an account. The secret
// is persisted unconfirmed; the user confirms it by scanning the QR code and
// submitting a first valid code.
func generateTOTPSecret(issuer, account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// VerifyTOTP reports whether code is currently valid for secret.
func VerifyTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}
