// Package auth covers password hashing, API token issue/verification and social login.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenIssuer struct {
	Secret    string
	Algorithm string
	Issuer    string
	Audience  string
	TTL       time.Duration
}

type TokenClaims struct {
	Subject  string
	Provider string
}

func (i TokenIssuer) signingMethod() (jwt.SigningMethod, error) {
	alg := i.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	switch alg {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

// Issue signs an access token for userID.
func (i TokenIssuer) Issue(userID, provider string, now time.Time) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("token subject is empty")
	}
	method, err := i.signingMethod()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub":      userID,
		"provider": provider,
		"iat":      now.Unix(),
	}
	if i.TTL > 0 {
		claims["exp"] = now.Add(i.TTL).Unix()
	}
	if i.Issuer != "" {
		claims["iss"] = i.Issuer
	}
	if i.Audience != "" {
		claims["aud"] = i.Audience
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(i.Secret))
}

// Verify parses a bearer token and returns its subject.
func (i TokenIssuer) Verify(tokenString string) (TokenClaims, error) {
	method, err := i.signingMethod()
	if err != nil {
		return TokenClaims{}, err
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{method.Alg()})}
	if i.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.Issuer))
	}
	if i.Audience != "" {
		options = append(options, jwt.WithAudience(i.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(i.Secret), nil
	}, options...)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("invalid bearer token: %w", err)
	}
	if !token.Valid {
		return TokenClaims{}, errors.New("invalid bearer token")
	}

	sub, _ := claims["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return TokenClaims{}, errors.New("token subject missing")
	}
	provider, _ := claims["provider"].(string)
	return TokenClaims{Subject: sub, Provider: provider}, nil
}
