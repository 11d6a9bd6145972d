package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash for storing operator and user
// credentials.  The cost comes from configuration so test environments
// can use a cheap factor.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash against a login attempt in
// constant time.  It returns false for malformed hashes as well, so
// callers treat any failure as a bad credential.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
