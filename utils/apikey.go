package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"freesend/models"
)

const (
	// APIKeyPrefix is the fixed leading segment of every key: frs_<id>_<secret>.
	APIKeyPrefix = "frs"

	apiKeyIDLength     = 8
	apiKeySecretLength = 32

	apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GeneratedAPIKey is the result of GenerateAPIKey. Plaintext is handed to the
// caller exactly once; only Prefix and Hash are persisted.
type GeneratedAPIKey struct {
	Plaintext string
	Prefix    string
	Hash      string
}

// GenerateAPIKey produces a new credential of the form frs_<id>_<secret> and
// the bcrypt hash that is stored in its place.
func GenerateAPIKey() (*GeneratedAPIKey, error) {
	id, err := randomString(apiKeyIDLength)
	if err != nil {
		return nil, err
	}
	secret, err := randomString(apiKeySecretLength)
	if err != nil {
		return nil, err
	}

	plaintext := APIKeyPrefix + "_" + id + "_" + secret
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &GeneratedAPIKey{
		Plaintext: plaintext,
		Prefix:    APIKeyPrefix + "_" + id,
		Hash:      string(hash),
	}, nil
}

// SplitAPIKeyPrefix extracts the "frs_<id>" lookup prefix from a candidate
// key. It locates the first two underscores rather than splitting on every
// underscore, so secrets containing underscores still parse.
func SplitAPIKeyPrefix(candidate string) (string, bool) {
	first := strings.Index(candidate, "_")
	if first <= 0 {
		return "", false
	}
	second := strings.Index(candidate[first+1:], "_")
	if second <= 0 {
		return "", false
	}
	second += first + 1
	if second == len(candidate)-1 {
		// Empty secret segment
		return "", false
	}
	return candidate[:second], true
}

// CompareAPIKey checks a candidate against a stored hash. bcrypt's comparison
// is not vulnerable to timing differences in the candidate.
func CompareAPIKey(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// VerifyAPIKey resolves a candidate key to its record, or nil when the key is
// malformed, unknown, or the secret does not match. All keys sharing the
// prefix are checked to handle prefix collisions. A match updates the
// last-used timestamp.
func VerifyAPIKey(db *gorm.DB, candidate string) (*models.APIKey, error) {
	prefix, ok := SplitAPIKeyPrefix(candidate)
	if !ok {
		return nil, nil
	}

	var keys []models.APIKey
	if err := db.Where("key_prefix = ?", prefix).Find(&keys).Error; err != nil {
		return nil, err
	}

	for i := range keys {
		if CompareAPIKey(keys[i].KeyHash, candidate) {
			now := time.Now()
			keys[i].LastUsedAt = &now
			if err := db.Model(&keys[i]).Update("last_used_at", now).Error; err != nil {
				// Not worth failing the request over
				return &keys[i], nil
			}
			return &keys[i], nil
		}
	}
	return nil, nil
}

func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(b), nil
}
