package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"SMProject/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options controls signing and token lifetime.
type Options struct {
	Secret []byte        // HMAC key
	Alg    string        // HS256/HS384/HS512 (default HS256)
	TTL    time.Duration // token lifetime (default 30 days)
	Issuer string
}

// Claims is what a verified token resolves to.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 30 * 24 * time.Hour, Issuer: "smc"}
}

// Generate signs a token for userID carrying its role.
func Generate(opts Options, userID, role string) (token string, expireAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, errs.ErrArgs.WrapMsg("userID is empty")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			Issuer:    opts.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errs.WrapMsg(err, "sign token")
	}
	return signed, exp, nil
}

// Verify parses and validates token. Expired tokens map to ErrTokenExpired,
// every other failure to ErrTokenInvalid.
func Verify(opts Options, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrTokenMissing.Wrap()
	}
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errs.ErrTokenExpired.WrapMsg(err.Error())
		}
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrTokenInvalid.WrapMsg("invalid token")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errs.ErrTokenInvalid.WrapMsg("token has no subject")
	}
	return claims, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errs.ErrArgs.WrapMsg("unsupported alg (use HS256/HS384/HS512)", "alg", alg)
	}
}
