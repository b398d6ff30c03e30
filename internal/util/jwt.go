package util

import (
	"errors"
	"fmt"
	"time"

	"quiz_master_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey 认证中间件写入 Claims 时使用的键
const ContextUserKey = "user"

var errInvalidToken = errors.New("invalid token")

// Claims 令牌由统一认证服务签发，这里只负责校验
type Claims struct {
	UserID uint           `json:"user_id"`
	Role   model.UserRole `json:"role"`
	Email  string         `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool { return c.Role == model.Admin }

// TokenVerifier 校验 HS256 令牌，issuer 为空时不检查 iss
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ParseJWT 不检查 issuer
func ParseJWT(tokenString, secret string) (*Claims, error) {
	return NewTokenVerifier(secret, "").Verify(tokenString)
}

// GenerateJWT 签发不带 iss 的令牌
func GenerateJWT(user *model.User, secret string, ttl time.Duration) (string, error) {
	return SignJWT(user, secret, "", ttl)
}

func SignJWT(user *model.User, secret, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func GetUserFromContext(c *gin.Context) *Claims {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
