// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// refreshTokenBytes is the entropy of an opaque refresh token.
const refreshTokenBytes = 32

// GenerateRefreshToken returns 32 random bytes, base64 encoded. The value carries no claims.
func (service *TokenService) GenerateRefreshToken() (string, error) {
	return GenerateSecureToken(refreshTokenBytes)
}

// RefreshTokenExpiry returns the expiry instant for a refresh token issued now.
func (service *TokenService) RefreshTokenExpiry() time.Time {
	return service.clock.Now().Add(service.config.RefreshTokenTTL)
}

// GenerateSecureToken reads size bytes from crypto/rand and base64 encodes them.
func GenerateSecureToken(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec_random_read_failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex SHA-256 digest stored in place of a refresh token value.
func HashToken(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}
