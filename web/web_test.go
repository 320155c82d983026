package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"portfolio/backend"
	"portfolio/models"
)

type noToken struct{}

func (noToken) Token() string { return "" }

func setupTestRouter(module *WebModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.SetFuncMap(map[string]interface{}{
		"now":   func() time.Time { return time.Now() },
		"owner": func() string { return "Portfolio" },
	})
	router.LoadHTMLGlob("views/*.html")
	module.RegisterRoutes(router)
	return router
}

func TestHome_RendersAbout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	api := backend.NewClient(server.URL, noToken{})
	module := NewWebModule(api, server.URL, "# About me\n\nI build things.")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "About me")
	assert.Contains(t, w.Body.String(), "I build things.")
}

func TestHome_BackendDownStillRenders(t *testing.T) {
	api := backend.NewClient("http://127.0.0.1:0", noToken{})
	module := NewWebModule(api, "http://127.0.0.1:0", "hello")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestBlog_ListsPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"title":"Go Tips","slug":"go-tips","image":"cover.jpg"},{"id":2,"title":"Other","slug":"other"}]}`))
	}))
	defer server.Close()

	api := backend.NewClient(server.URL, noToken{})
	module := NewWebModule(api, server.URL, "")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/blog", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go Tips")
	assert.Contains(t, w.Body.String(), "serve-image.php?file=cover.jpg")
}

func TestBlog_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"title":"Go Tips","slug":"go-tips"},{"id":2,"title":"Cooking","slug":"cooking"}]}`))
	}))
	defer server.Close()

	api := backend.NewClient(server.URL, noToken{})
	module := NewWebModule(api, server.URL, "")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/blog?q=go", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go Tips")
	assert.NotContains(t, w.Body.String(), "Cooking")
}

func TestBlog_BackendDownShowsErrorPanel(t *testing.T) {
	api := backend.NewClient("http://127.0.0.1:0", noToken{})
	module := NewWebModule(api, "http://127.0.0.1:0", "")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/blog", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to fetch blog posts")
}

func TestShowPost_RewritesContentImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go-tips", r.URL.Query().Get("slug"))
		w.Write([]byte(`{"id":1,"title":"Go Tips","slug":"go-tips","description":"<p>intro</p><img src=\"inline.jpg\">","image":"cover.jpg"}`))
	}))
	defer server.Close()

	api := backend.NewClient(server.URL, noToken{})
	module := NewWebModule(api, server.URL, "")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/blog/posts/go-tips", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go Tips")
	assert.Contains(t, w.Body.String(), "serve-image.php?file=inline.jpg")
	assert.Contains(t, w.Body.String(), "serve-image.php?file=cover.jpg")
}

func TestShowPost_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Post not found"}`))
	}))
	defer server.Close()

	api := backend.NewClient(server.URL, noToken{})
	module := NewWebModule(api, server.URL, "")
	router := setupTestRouter(module)

	req, _ := http.NewRequest("GET", "/blog/posts/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Post not found")
}

func TestImageURL(t *testing.T) {
	module := NewWebModule(nil, "https://api.example.com/", "")

	assert.Equal(t, "https://api.example.com/serve-image.php?file=a%20b.jpg", module.ImageURL("a b.jpg"))
	assert.Empty(t, module.ImageURL(""))
}

func TestSearchPosts(t *testing.T) {
	posts := []models.Post{
		{Title: "Go Concurrency", Description: "channels"},
		{Title: "Dinner", Description: "go to the store"},
		{Title: "Other", Description: "nothing"},
	}

	assert.Len(t, searchPosts(posts, "go"), 2)
	assert.Empty(t, searchPosts(posts, "zzz"))
}
