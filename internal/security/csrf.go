package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CSRFGenerator issues form tokens of the form "<issued unix>.<hex mac>",
// where the MAC covers the trainee ID and the issue time. Tokens need no
// stored state and expire after maxAge.
type CSRFGenerator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRFGenerator creates a generator whose tokens are accepted for maxAge
func NewCSRFGenerator(secret []byte, maxAge time.Duration) *CSRFGenerator {
	return &CSRFGenerator{secret: secret, maxAge: maxAge, now: time.Now}
}

// GenerateToken returns a fresh CSRF token for the given trainee ID
func (g *CSRFGenerator) GenerateToken(traineeID string) (string, error) {
	if traineeID == "" {
		return "", fmt.Errorf("trainee ID is required")
	}
	issued := strconv.FormatInt(g.now().Unix(), 10)
	return issued + "." + g.sign(traineeID, issued), nil
}

// ValidateToken reports whether token was issued for traineeID and has not expired
func (g *CSRFGenerator) ValidateToken(traineeID, token string) bool {
	if traineeID == "" || token == "" {
		return false
	}
	issued, mac, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	unix, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return false
	}

	age := g.now().Sub(time.Unix(unix, 0))
	if age > g.maxAge || age < -time.Minute {
		return false
	}
	return hmac.Equal([]byte(g.sign(traineeID, issued)), []byte(mac))
}

func (g *CSRFGenerator) sign(traineeID, issued string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(traineeID))
	mac.Write([]byte{0})
	mac.Write([]byte(issued))
	return hex.EncodeToString(mac.Sum(nil))
}
