package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "dinehub.io/backoffice/internal/pkg/errors"
)

// JWTClaims defines the back-office token claims.
type JWTClaims struct {
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	RestaurantID int64   `json:"restaurant_id"`
	RoleIDs      []int64 `json:"role_ids"`
	SuperAdmin   bool    `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the request principal.
func (c *JWTClaims) Principal() Principal {
	return Principal{
		UserID:       c.UserID,
		Username:     c.Username,
		RestaurantID: c.RestaurantID,
		RoleIDs:      c.RoleIDs,
		SuperAdmin:   c.SuperAdmin,
	}
}

// ErrJWTSigningKeyMissing is returned when no key is configured to verify tokens.
var ErrJWTSigningKeyMissing = errors.New("jwt signing key missing")

// JWTConfig holds JWT signing configuration.
// VerificationKeys are previous signing keys still accepted during rotation.
type JWTConfig struct {
	SigningKey       []byte
	VerificationKeys [][]byte
	Issuer           string
	ExpiresIn        time.Duration
}

// GenerateToken creates a signed JWT for the given principal.
func GenerateToken(cfg JWTConfig, p Principal) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.ExpiresIn)

	jti, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}

	claims := JWTClaims{
		UserID:       p.UserID,
		Username:     p.Username,
		RestaurantID: p.RestaurantID,
		RoleIDs:      p.RoleIDs,
		SuperAdmin:   p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    cfg.Issuer,
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken parses a token, trying the signing key first and then each
// verification key.
func (cfg JWTConfig) ValidateToken(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	keys := make([][]byte, 0, 1+len(cfg.VerificationKeys))
	keys = append(keys, cfg.SigningKey)
	keys = append(keys, cfg.VerificationKeys...)

	var lastErr error
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, opts...)
		if err == nil && token.Valid {
			return claims, nil
		}
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %w", jwt.ErrTokenUnverifiable, ErrJWTSigningKeyMissing)
	}
	return nil, lastErr
}

// JWTAuth returns a Gin middleware that validates Bearer tokens and stores
// the principal in the request context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "invalid authorization header format"))
			return
		}

		claims, err := cfg.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				AbortWithError(c, apperrors.Unauthorized(apperrors.CodeTokenExpired, "token expired"))
				return
			}
			AbortWithError(c, apperrors.Unauthorized(apperrors.CodeUnauthorized, "invalid token"))
			return
		}

		c.Request = c.Request.WithContext(SetPrincipal(c.Request.Context(), claims.Principal()))
		c.Next()
	}
}
