package middleware

import (
	"errors"
	"net/http"
	"time"

	"storefront/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CartSessionCookie = "cart_session"
	CtxCartSessionKey = "cart_session_id" // string
)

var ErrInvalidSession = errors.New("invalid session")

// セッションcookie（HS256 JWT, sub=セッションID）の発行と検証
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionIssuer(cfg config.Config) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(cfg.SessionSecret),
		ttl:    cfg.SessionTTL,
		secure: cfg.CookieSecure,
		now:    time.Now,
	}
}

func (i *SessionIssuer) Issue(sessionID string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// 検証してセッションIDを返す
func (i *SessionIssuer) Parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidSession
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// cookieからセッションIDを取り出す。無い・不正なら新しいセッションを発行。
func CartSession(issuer *SessionIssuer, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(CartSessionCookie); err == nil && ck.Value != "" {
				if sid, err := issuer.Parse(ck.Value); err == nil {
					c.Set(CtxCartSessionKey, sid)
					return next(c)
				}
			}

			sid := uuid.NewString()
			signed, expiresAt, err := issuer.Issue(sid)
			if err != nil {
				log.Error("session issue failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			c.SetCookie(&http.Cookie{
				Name:     CartSessionCookie,
				Value:    signed,
				Path:     "/",
				Expires:  expiresAt,
				HttpOnly: true,
				Secure:   issuer.secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(CtxCartSessionKey, sid)

			return next(c)
		}
	}
}

func SessionIDFromContext(c echo.Context) (string, bool) {
	sid, ok := c.Get(CtxCartSessionKey).(string)
	if !ok || sid == "" {
		return "", false
	}
	return sid, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
