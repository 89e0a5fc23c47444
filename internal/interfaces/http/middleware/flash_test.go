package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/personportal/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFlashStore struct{}

func (failingFlashStore) Put(context.Context, string, string, string) error {
	return errors.New("store down")
}

func (failingFlashStore) Take(context.Context, string) (map[string]string, error) {
	return nil, errors.New("store down")
}

func (failingFlashStore) Close() error { return nil }

func newFlashRouter(store cache.FlashStore) *gin.Engine {
	router := gin.New()
	router.Use(FlashSession(FlashSessionConfig{Store: store, CookieName: "flash"}))
	router.POST("/put", func(c *gin.Context) {
		PutFlash(c, FlashMessage, "Person Saved Successfully")
		c.String(http.StatusOK, FlashSessionID(c))
	})
	router.GET("/take", func(c *gin.Context) {
		c.JSON(http.StatusOK, TakeFlash(c))
	})
	return router
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "flash" {
			return ck
		}
	}
	t.Fatal("flash cookie not set")
	return nil
}

func TestFlashSession_IssuesCookie(t *testing.T) {
	store := cache.NewInMemoryFlashStore(time.Minute)
	defer store.Close()
	router := newFlashRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/put", nil))

	ck := sessionCookie(t, w)
	assert.NoError(t, uuid.Validate(ck.Value))
	assert.Equal(t, ck.Value, w.Body.String())
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
}

func TestFlashSession_ReusesValidCookie(t *testing.T) {
	store := cache.NewInMemoryFlashStore(time.Minute)
	defer store.Close()
	router := newFlashRouter(store)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/put", nil)
	req.AddCookie(&http.Cookie{Name: "flash", Value: id})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, id, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestFlashSession_ReplacesForgedCookie(t *testing.T) {
	store := cache.NewInMemoryFlashStore(time.Minute)
	defer store.Close()
	router := newFlashRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/put", nil)
	req.AddCookie(&http.Cookie{Name: "flash", Value: "../../etc"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NoError(t, uuid.Validate(sessionCookie(t, w).Value))
}

func TestFlash_VisibleOnExactlyOneRender(t *testing.T) {
	store := cache.NewInMemoryFlashStore(time.Minute)
	defer store.Close()
	router := newFlashRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/put", nil))
	ck := sessionCookie(t, w)

	take := func() string {
		req := httptest.NewRequest(http.MethodGet, "/take", nil)
		req.AddCookie(ck)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return w.Body.String()
	}

	assert.JSONEq(t, `{"Message":"Person Saved Successfully"}`, take())
	assert.JSONEq(t, `{}`, take())
}

func TestFlash_StoreFailuresAreSwallowed(t *testing.T) {
	router := newFlashRouter(failingFlashStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/put", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/take", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestTakeFlash_WithoutSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	PutFlash(c, FlashError, "ignored")
	assert.Empty(t, TakeFlash(c))
	assert.NotNil(t, TakeFlash(c))
}
