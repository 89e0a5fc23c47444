package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/erp/personportal/internal/infrastructure/auth"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// AccessClaimsKey is the gin context key holding validated *auth.Claims.
	AccessClaimsKey = "access_claims"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// AccessGuardConfig configures RequireAccess.
type AccessGuardConfig struct {
	Enabled    bool
	Tokens     *auth.TokenService
	CookieName string
	LoginURL   string
}

// RequireAccess lets a request through only when it carries a valid access
// token, taken from the configured cookie or an Authorization bearer header.
// Anything else is redirected to the login page with the original URL in
// ReturnUrl.
func RequireAccess(cfg AccessGuardConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Tokens == nil {
		return passThrough
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "/Login"
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := accessToken(c, cfg.CookieName)
		if token == "" {
			redirectToLogin(c, cfg.LoginURL)
			return
		}

		claims, err := cfg.Tokens.Validate(token)
		if err != nil {
			logger.L(ctx).Info("Access token rejected", zap.Error(err))
			redirectToLogin(c, cfg.LoginURL)
			return
		}

		c.Set(AccessClaimsKey, claims)
		reqLogger := logger.FromContext(ctx).With(zap.String("user", claims.Subject))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, reqLogger))
		c.Next()
	}
}

func accessToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}
	if h := c.GetHeader(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return ""
}

func redirectToLogin(c *gin.Context, loginURL string) {
	target := loginURL
	if u, err := url.Parse(loginURL); err == nil {
		q := u.Query()
		q.Set("ReturnUrl", c.Request.URL.RequestURI())
		u.RawQuery = q.Encode()
		target = u.String()
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// GetAccessClaims returns the claims stored by RequireAccess, or nil.
func GetAccessClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(AccessClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
