package linkvault

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// HashPassword hashes a plaintext password for storage. The clear text is
// never persisted.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the supplied password unlocks the record:
// true when no password is set, or when the supplied password matches the
// stored hash. The bcrypt comparison is constant-time.
func VerifyPassword(rec *ContentRecord, supplied string) bool {
	if rec.PasswordHash == "" {
		return true
	}
	if supplied == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(supplied)) == nil
}

// VerifyDeleteCredential reports whether the credential authorizes deleting
// the record: the system credential always does; otherwise the token must
// match the stored delete token, or the owner id must match the record's
// owner. Token comparison is constant-time.
func VerifyDeleteCredential(rec *ContentRecord, cred DeleteCredential) bool {
	if cred.System {
		return true
	}
	if cred.Token != "" && rec.DeleteToken != "" {
		if subtle.ConstantTimeCompare([]byte(cred.Token), []byte(rec.DeleteToken)) == 1 {
			return true
		}
	}
	if cred.OwnerID != "" && rec.OwnerID != "" && cred.OwnerID == rec.OwnerID {
		return true
	}
	return false
}
