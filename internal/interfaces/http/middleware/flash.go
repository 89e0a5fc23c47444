package middleware

import (
	"net/http"

	"github.com/erp/personportal/internal/infrastructure/cache"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flash message keys read by the page templates.
const (
	FlashMessage        = "Message"
	FlashError          = "Error"
	FlashSuccessMessage = "SuccessMessage"
	FlashErrorMessage   = "ErrorMessage"
)

const (
	flashSessionKey = "flash_session_id"
	flashStoreKey   = "flash_store"
)

// FlashSessionConfig configures the flash session cookie.
type FlashSessionConfig struct {
	Store      cache.FlashStore
	CookieName string
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// FlashSession makes sure every browser carries an opaque session id cookie
// and exposes the flash store to handlers through PutFlash and TakeFlash.
func FlashSession(cfg FlashSessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "portal_flash"
	}
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, sessionID, 0, "/", "", cfg.Secure, true)
		}
		c.Set(flashSessionKey, sessionID)
		c.Set(flashStoreKey, cfg.Store)
		c.Next()
	}
}

// FlashSessionID returns the session id assigned by FlashSession.
func FlashSessionID(c *gin.Context) string {
	return c.GetString(flashSessionKey)
}

func flashStore(c *gin.Context) (cache.FlashStore, string, bool) {
	v, ok := c.Get(flashStoreKey)
	if !ok {
		return nil, "", false
	}
	store, ok := v.(cache.FlashStore)
	if !ok || store == nil {
		return nil, "", false
	}
	sessionID := FlashSessionID(c)
	return store, sessionID, sessionID != ""
}

// PutFlash queues a message for the next rendered page. Store failures are
// logged and otherwise ignored; a lost flash message never fails a request.
func PutFlash(c *gin.Context, key, message string) {
	store, sessionID, ok := flashStore(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := store.Put(ctx, sessionID, key, message); err != nil {
		logger.L(ctx).Warn("Failed to store flash message", zap.String("key", key), zap.Error(err))
	}
}

// TakeFlash returns and clears the pending messages of the current session.
// The result is never nil.
func TakeFlash(c *gin.Context) map[string]string {
	store, sessionID, ok := flashStore(c)
	if !ok {
		return map[string]string{}
	}
	ctx := c.Request.Context()
	messages, err := store.Take(ctx, sessionID)
	if err != nil {
		logger.L(ctx).Warn("Failed to read flash messages", zap.Error(err))
		return map[string]string{}
	}
	if messages == nil {
		return map[string]string{}
	}
	return messages
}
