package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sealKeyID = "snapshot-seal-v1"

// Sealer signs serialized snapshots so later tampering of the stored blob is
// detectable. A Sealer without a secret produces empty seals.
type Sealer struct {
	secret []byte
}

// NewSealer creates a sealer for the HMAC secret.
func NewSealer(secret string) *Sealer {
	return &Sealer{secret: []byte(secret)}
}

// Enabled reports whether seals are produced and checked.
func (s *Sealer) Enabled() bool { return s != nil && len(s.secret) > 0 }

// Digest is the hex SHA-256 of a serialized snapshot.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Seal returns an HS256 token binding the version id to the snapshot digest.
func (s *Sealer) Seal(versionID string, data []byte, createdAt time.Time) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    versionID,
		"digest": Digest(data),
		"iat":    createdAt.Unix(),
	})
	token.Header["kid"] = sealKeyID

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign snapshot seal: %w", err)
	}
	return signed, nil
}

// ErrSealMismatch reports a seal that does not match the stored snapshot.
var ErrSealMismatch = errors.New("snapshot seal does not match")

// Verify checks that seal was produced for versionID over exactly data.
func (s *Sealer) Verify(seal, versionID string, data []byte) error {
	if !s.Enabled() {
		return nil
	}
	if seal == "" {
		return fmt.Errorf("%w: snapshot is unsealed", ErrSealMismatch)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(seal, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSealMismatch, err)
	}

	sub, _ := claims.GetSubject()
	digest, _ := claims["digest"].(string)
	if sub != versionID || digest != Digest(data) {
		return ErrSealMismatch
	}
	return nil
}
