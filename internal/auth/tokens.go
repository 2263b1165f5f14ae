package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const verificationTokenType = "email_verification"

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenIssuer signs and verifies the JWTs used for API access and for
// email verification links.
type TokenIssuer struct {
	secret          []byte
	accessTTL       time.Duration
	verificationTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, verificationTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:          []byte(secret),
		accessTTL:       accessTTL,
		verificationTTL: verificationTTL,
	}
}

// IssueAccessToken returns a signed access token for the given user ID.
func (t *TokenIssuer) IssueAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(t.accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyAccessToken parses the token and returns the user ID it carries.
func (t *TokenIssuer) VerifyAccessToken(token string) (uint, error) {
	claims, err := t.parse(token)
	if err != nil {
		return 0, err
	}
	if typ, ok := claims["type"].(string); ok && typ == verificationTokenType {
		return 0, ErrWrongTokenType
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// IssueVerificationToken returns a signed email-verification token.
func (t *TokenIssuer) IssueVerificationToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  email,
		"type": verificationTokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(t.verificationTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyVerificationToken parses the token and returns the email it was
// issued for. Access tokens are rejected.
func (t *TokenIssuer) VerifyVerificationToken(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	typ, _ := claims["type"].(string)
	if typ != verificationTokenType {
		return "", ErrWrongTokenType
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (t *TokenIssuer) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
