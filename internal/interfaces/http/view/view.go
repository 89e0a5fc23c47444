// Package view renders the portal's HTML pages and serves their static
// assets from files embedded in the binary.
package view

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page names, one per template file.
const (
	PageList      = "GetAllPerson"
	PageListMulti = "GetAllPersonMulti"
	PageAddEdit   = "PersonAddEdit"
)

const layoutFile = "templates/layout.html"

// Page is the data every template receives.
type Page struct {
	Title string
	// Flash holds the messages consumed for this render, keyed by
	// Message, Error, SuccessMessage and ErrorMessage.
	Flash map[string]string
	// User is the display name of the signed-in user, empty when the
	// access guard is off.
	User string
	Data any
}

type asset struct {
	content     []byte
	contentType string
	version     string
}

// Renderer implements gin's render.HTMLRender over the embedded templates.
type Renderer struct {
	pages    map[string]*template.Template
	assets   map[string]asset
	minifier *minify.M
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMinify minifies rendered pages and static assets.
func WithMinify(enabled bool) Option {
	return func(r *Renderer) {
		if !enabled {
			r.minifier = nil
			return
		}
		m := minify.New()
		m.AddFunc("text/html", minhtml.Minify)
		m.AddFunc("text/css", mincss.Minify)
		m.AddFunc("text/javascript", minjs.Minify)
		r.minifier = m
	}
}

// New parses every page together with the shared layout.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		pages:  make(map[string]*template.Template),
		assets: make(map[string]asset),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.loadAssets(); err != nil {
		return nil, err
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(r.funcs()).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *Renderer) funcs() template.FuncMap {
	funcs := sprig.HtmlFuncMap()
	funcs["static"] = r.assetURL
	return funcs
}

func (r *Renderer) loadAssets() error {
	return fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := staticFS.ReadFile(p)
		if err != nil {
			return err
		}
		contentType := mime.TypeByExtension(path.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if r.minifier != nil {
			mediaType, _, _ := strings.Cut(contentType, ";")
			var buf bytes.Buffer
			if err := r.minifier.Minify(mediaType, &buf, bytes.NewReader(content)); err == nil {
				content = buf.Bytes()
			}
		}
		sum := sha256.Sum256(content)
		r.assets[path.Base(p)] = asset{
			content:     content,
			contentType: contentType,
			version:     hex.EncodeToString(sum[:])[:8],
		}
		return nil
	})
}

// assetURL returns the cache-busting URL of an embedded asset.
func (r *Renderer) assetURL(name string) string {
	a, ok := r.assets[name]
	if !ok {
		return "/static/" + name
	}
	return "/static/" + name + "?v=" + a.version
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	return &pageRender{
		tmpl:     r.pages[name],
		name:     name,
		data:     data,
		minifier: r.minifier,
	}
}

// ServeStatic serves the embedded assets under /static/*filepath.
func (r *Renderer) ServeStatic(c *gin.Context) {
	a, ok := r.assets[path.Base(c.Param("filepath"))]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, a.contentType, a.content)
}

var htmlContentType = []string{"text/html; charset=utf-8"}

type pageRender struct {
	tmpl     *template.Template
	name     string
	data     any
	minifier *minify.M
}

// Render executes the layout into a buffer first so a template error never
// leaves a half-written page behind.
func (p *pageRender) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.tmpl == nil {
		return fmt.Errorf("view: unknown page %q", p.name)
	}

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "layout", p.data); err != nil {
		return fmt.Errorf("view: render %s: %w", p.name, err)
	}
	if p.minifier != nil {
		return p.minifier.Minify("text/html", w, &buf)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (p *pageRender) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = htmlContentType
	}
}
