package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/config"
)

// DownloadClaims identify one published export file.
type DownloadClaims struct {
	InterviewID uuid.UUID `json:"interview_id"`
	FileName    string    `json:"file_name"`
	jwt.RegisteredClaims
}

// Signer issues and verifies download tokens.
type Signer struct {
	config *config.DownloadConfig
	now    func() time.Time
}

// NewSigner creates a signer with the given configuration.
func NewSigner(cfg *config.DownloadConfig) *Signer {
	return &Signer{config: cfg, now: time.Now}
}

// Issue signs a token for fileName.
func (s *Signer) Issue(interviewID uuid.UUID, fileName string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.Expiration)

	claims := &DownloadClaims{
		InterviewID: interviewID,
		FileName:    fileName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   interviewID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and returns its claims.
func (s *Signer) Verify(tokenString string) (*DownloadClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &DownloadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
