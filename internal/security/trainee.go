package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "fcetrainer"

// ErrInvalidTraineeToken is returned for a cookie that is malformed, expired or wrongly signed
var ErrInvalidTraineeToken = errors.New("invalid trainee token")

// NewTraineeID creates a new anonymous trainee identity
func NewTraineeID() string {
	return uuid.New().String()
}

// TraineeTokens signs and verifies the trainee cookie, an HS256 JWT whose
// subject is the trainee ID
type TraineeTokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTraineeTokens creates a token signer with the given key and lifetime
func NewTraineeTokens(key []byte, ttl time.Duration) *TraineeTokens {
	return &TraineeTokens{key: key, ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid
func (t *TraineeTokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for traineeID
func (t *TraineeTokens) Issue(traineeID string) (string, error) {
	if _, err := uuid.Parse(traineeID); err != nil {
		return "", fmt.Errorf("invalid trainee ID: %w", err)
	}

	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   traineeID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// Verify checks the token and returns the trainee ID it carries
func (t *TraineeTokens) Verify(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTraineeToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject is not a trainee ID", ErrInvalidTraineeToken)
	}
	return claims.Subject, nil
}
