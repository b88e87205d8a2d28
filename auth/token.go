package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"hackernews/errs"
)

const bearerScheme = "Bearer "

// AuthTokenPayload token 校验成功后得到的调用者身份，不做持久化
type AuthTokenPayload struct {
	UserID uint
}

// Claims 签发与校验使用的 jwt claims
type Claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// Decoder 使用共享密钥校验 HS256 token
type Decoder struct {
	secret []byte
}

func NewDecoder(secret string) *Decoder {
	return &Decoder{secret: []byte(secret)}
}

// DecodeAuthHeader 解析形如 "Bearer <token>" 的请求头。
// 缺少 Bearer 前缀或 token 为空返回 UNAUTHENTICATED，签名、算法或过期校验失败返回 INVALID_TOKEN。
func (d *Decoder) DecodeAuthHeader(header string) (*AuthTokenPayload, error) {
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return nil, errs.Authentication("No token found")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return nil, errs.Authentication("No token found")
	}
	return d.Decode(token)
}

// Decode 校验不带前缀的 token
func (d *Decoder) Decode(token string) (*AuthTokenPayload, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return d.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errs.Verification(err)
	}
	if !parsed.Valid {
		return nil, errs.Verification(errors.New("token is not valid"))
	}
	if claims.UserID == 0 {
		return nil, errs.Verification(errors.New("token has no userId claim"))
	}
	return &AuthTokenPayload{UserID: claims.UserID}, nil
}

// Issuer 为 signup / login 签发 token
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer ttl 为 0 时签发的 token 不过期
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Sign(userID uint) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
