package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/config"
)

var (
	signingMethod = jwt.SigningMethodHS256

	errMissingSecret = errors.New("jwt secret is required")
)

// identityIssuerSuffix keeps identity tokens from parsing as access tokens.
const identityIssuerSuffix = ":identity"

// MintAccessToken signs an access token for payload, valid for the
// configured number of minutes from now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	return sign(cfg.Secret, AccessTokenClaims{
		UserID:           payload.UserID,
		StoreID:          payload.StoreID,
		Role:             payload.Role,
		RegisteredClaims: registered(cfg.Issuer, "", jti, now, ttl),
	})
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := parse(cfg.Secret, tokenString, claims, cfg.Issuer); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseAccessTokenAllowExpired verifies the signature but not exp/nbf, so a
// refresh can still read the jti of an expired token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := parse(cfg.Secret, tokenString, claims, cfg.Issuer, jwt.WithoutClaimsValidation()); err != nil {
		return nil, err
	}
	return claims, nil
}

// MintIdentityToken issues the local provider's credential proof for authID.
func MintIdentityToken(cfg config.JWTConfig, ttl time.Duration, now time.Time, authID, email string) (string, error) {
	if strings.TrimSpace(authID) == "" {
		return "", errors.New("auth id is required")
	}
	if ttl <= 0 {
		return "", errors.New("identity token ttl must be positive")
	}
	return sign(cfg.Secret, IdentityTokenClaims{
		Email:            email,
		RegisteredClaims: registered(cfg.Issuer+identityIssuerSuffix, authID, uuid.NewString(), now, ttl),
	})
}

// ParseIdentityToken validates a token minted by MintIdentityToken.
func ParseIdentityToken(cfg config.JWTConfig, tokenString string) (*IdentityTokenClaims, error) {
	claims := &IdentityTokenClaims{}
	if err := parse(cfg.Secret, tokenString, claims, cfg.Issuer+identityIssuerSuffix); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("identity token missing subject")
	}
	return claims, nil
}

func registered(issuer, subject, jti string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	if secret == "" {
		return "", errMissingSecret
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(secret, tokenString string, claims jwt.Claims, issuer string, extra ...jwt.ParserOption) error {
	if secret == "" {
		return errMissingSecret
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(issuer),
	}, extra...)
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return err
}
