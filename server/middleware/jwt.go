package middleware

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures HMAC-signed bearer tokens.
type JWTConfig struct {
	Secret    string `yaml:"secret" mapstructure:"secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
	Audience  string `yaml:"audience" mapstructure:"audience"`
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=HS256 HS384 HS512"`
}

func (c JWTConfig) signingMethod() gojwt.SigningMethod {
	switch c.Algorithm {
	case "HS384":
		return gojwt.SigningMethodHS384
	case "HS512":
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}

// JWTValidator returns a TokenValidator that accepts tokens signed with
// cfg.Secret and, when set, issued by cfg.Issuer for cfg.Audience.
func JWTValidator(cfg JWTConfig) (func(string) (map[string]interface{}, error), error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	key := []byte(cfg.Secret)
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{cfg.signingMethod().Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	parser := gojwt.NewParser(opts...)

	return func(token string) (map[string]interface{}, error) {
		claims := gojwt.MapClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(*gojwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			return nil, err
		}
		return claims, nil
	}, nil
}

// IssueToken signs a token for subject valid for ttl.
func IssueToken(cfg JWTConfig, subject string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{cfg.Audience}
	}
	return gojwt.NewWithClaims(cfg.signingMethod(), claims).SignedString([]byte(cfg.Secret))
}
