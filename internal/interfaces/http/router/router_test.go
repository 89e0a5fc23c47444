package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	personapp "github.com/erp/personportal/internal/application/person"
	"github.com/erp/personportal/internal/domain/person"
	"github.com/erp/personportal/internal/infrastructure/auth"
	"github.com/erp/personportal/internal/infrastructure/config"
	"github.com/erp/personportal/internal/interfaces/http/handler"
	"github.com/erp/personportal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRepo struct{}

func (stubRepo) FindAll(context.Context) ([]person.Person, error) {
	return []person.Person{{PersonID: 1, Name: "Ada"}}, nil
}
func (stubRepo) FindByID(context.Context, int) (person.Person, error) { return person.Person{}, nil }
func (stubRepo) Create(context.Context, person.Person) error          { return nil }
func (stubRepo) Update(context.Context, person.Person) error          { return nil }
func (stubRepo) Delete(context.Context, int) error                    { return nil }

type stubBuilder struct{}

func (stubBuilder) Build([]person.Person) ([]byte, error) { return []byte("xlsx"), nil }

func newPersonHandler() *handler.PersonHandler {
	return handler.NewPersonHandler(personapp.NewService(stubRepo{}, stubBuilder{}))
}

func serve(engine *gin.Engine, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Empty(t, r.prefix)
	assert.Empty(t, r.registrars)
}

func TestRouterWithPrefix(t *testing.T) {
	r := NewRouter(gin.New(), WithPrefix("/portal"))
	assert.Equal(t, "/portal", r.prefix)
}

func TestRouterSetup(t *testing.T) {
	t.Run("mounts groups at the site root", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)
		r.Register(NewDomainGroup("test", "/Test").GET("/Ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		}))
		r.Setup()

		w := serve(engine, http.MethodGet, "/Test/Ping")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})

	t.Run("router middleware runs before group handlers", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine, WithPrefix("/portal"))
		r.Use(func(c *gin.Context) {
			c.Header("X-Seen", "yes")
			c.Next()
		})
		r.Register(NewDomainGroup("test", "/Test").GET("/Ping", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		}))
		r.Setup()

		w := serve(engine, http.MethodGet, "/portal/Test/Ping")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "yes", w.Header().Get("X-Seen"))
	})
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("person", "/Person")
		assert.Equal(t, "person", g.Name())
		assert.Equal(t, "/Person", g.Prefix())
	})

	t.Run("registers each method", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
		NewDomainGroup("test", "/Test").
			GET("/Item", ok).
			POST("/Item", ok).
			DELETE("/Item", ok).
			RegisterRoutes(&engine.RouterGroup)

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			w := serve(engine, method, "/Test/Item")
			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.Equal(t, method, w.Body.String())
		}
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodPut, "/Test/Item").Code)
	})

	t.Run("group middleware aborts", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("test", "/Test").
			Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }).
			GET("/Item", func(c *gin.Context) { c.Status(http.StatusOK) }).
			RegisterRoutes(&engine.RouterGroup)

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/Test/Item").Code)
	})
}

func TestPersonRoutes(t *testing.T) {
	t.Run("registers every action with its method", func(t *testing.T) {
		engine := gin.New()
		PersonRoutes(newPersonHandler(), nil).RegisterRoutes(&engine.RouterGroup)

		want := map[string]string{
			"/Person/GetAllPerson":      http.MethodGet,
			"/Person/ReturnJson":        http.MethodGet,
			"/Person/GetAllPersonMulti": http.MethodGet,
			"/Person/Delete":            http.MethodDelete,
			"/Person/EditPerson":        http.MethodGet,
			"/Person/Save":              http.MethodPost,
			"/Person/ExportExcel":       http.MethodGet,
			"/Person/DeleteSelected":    http.MethodPost,
		}
		got := make(map[string]string)
		for _, ri := range engine.Routes() {
			got[ri.Path] = ri.Method
		}
		assert.Equal(t, want, got)
	})

	t.Run("open group serves json", func(t *testing.T) {
		engine := gin.New()
		PersonRoutes(newPersonHandler(), nil).RegisterRoutes(&engine.RouterGroup)

		w := serve(engine, http.MethodGet, "/Person/ReturnJson")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"personID":1,"name":"Ada","contact":"","email":""}]`, w.Body.String())
	})
}

func TestPersonRoutes_AccessGuard(t *testing.T) {
	accessCfg := config.AccessConfig{
		Enabled:    true,
		Secret:     "router-test-secret-with-enough-length",
		Issuer:     "person-portal",
		CookieName: "portal_access",
		LoginURL:   "/Login",
	}
	tokens := auth.NewTokenService(accessCfg)
	guard := middleware.RequireAccess(middleware.AccessGuardConfig{
		Enabled:    true,
		Tokens:     tokens,
		CookieName: accessCfg.CookieName,
		LoginURL:   accessCfg.LoginURL,
	})

	engine := gin.New()
	NewRouter(engine).Register(PersonRoutes(newPersonHandler(), guard)).Setup()

	t.Run("redirects anonymous browsers to login", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/Person/ReturnJson")

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/Login?ReturnUrl=%2FPerson%2FReturnJson", w.Header().Get("Location"))
	})

	t.Run("admits a valid access cookie", func(t *testing.T) {
		token, _, err := tokens.Generate("u-1", "Ada", time.Hour)
		require.NoError(t, err)

		w := serve(engine, http.MethodGet, "/Person/ReturnJson", &http.Cookie{Name: "portal_access", Value: token})

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
