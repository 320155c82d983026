package web

import (
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/backend"
	"portfolio/models"
)

// WebModule serves the public site: the portfolio home page and the blog,
// both rendered from posts fetched off the remote backend.
type WebModule struct {
	api     *backend.Client
	apiBase string
	about   template.HTML
}

func NewWebModule(api *backend.Client, apiBase, aboutMarkdown string) *WebModule {
	return &WebModule{
		api:     api,
		apiBase: strings.TrimRight(apiBase, "/"),
		about:   template.HTML(renderMarkdown(aboutMarkdown)),
	}
}

func (w *WebModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", w.home)
	router.GET("/blog", w.listPosts)
	router.GET("/blog/posts/:slug", w.showPost)
}

// ImageURL resolves a stored image filename to the backend's serving endpoint.
func (w *WebModule) ImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return w.apiBase + "/serve-image.php?file=" + url.QueryEscape(filename)
}

type postCard struct {
	models.Post
	ImageURL string
}

func (w *WebModule) cards(posts []models.Post) []postCard {
	out := make([]postCard, 0, len(posts))
	for _, p := range posts {
		out = append(out, postCard{Post: p, ImageURL: w.ImageURL(p.Image)})
	}
	return out
}

func (w *WebModule) home(c *gin.Context) {
	var recent []postCard
	posts, err := w.api.ListPosts(c.Request.Context())
	if err != nil {
		// The home page still renders without the recent-posts strip.
		log.Printf("web: loading recent posts: %v", err)
	} else {
		if len(posts) > 3 {
			posts = posts[:3]
		}
		recent = w.cards(posts)
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"about":  w.about,
		"recent": recent,
	})
}

func (w *WebModule) listPosts(c *gin.Context) {
	posts, err := w.api.ListPosts(c.Request.Context())
	if err != nil {
		c.HTML(http.StatusBadGateway, "blog.html", gin.H{
			"error": "Failed to fetch blog posts. Please try again later.",
		})
		return
	}

	query := c.Query("q")
	if query != "" {
		posts = searchPosts(posts, query)
	}

	c.HTML(http.StatusOK, "blog.html", gin.H{
		"posts": w.cards(posts),
		"q":     query,
	})
}

func searchPosts(posts []models.Post, query string) []models.Post {
	query = strings.ToLower(query)
	var out []models.Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			out = append(out, p)
		}
	}
	return out
}

func (w *WebModule) showPost(c *gin.Context) {
	slug := c.Param("slug")
	post, err := w.api.GetPostBySlug(c.Request.Context(), slug)
	if err != nil {
		c.HTML(http.StatusNotFound, "blog_post.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	content := template.HTML(RewriteImageRefs(post.Description, w.ImageURL))

	var burmese template.HTML
	if strings.TrimSpace(post.ContentBurmese) != "" {
		burmese = template.HTML(RewriteImageRefs(post.ContentBurmese, w.ImageURL))
	}

	c.HTML(http.StatusOK, "blog_post.html", gin.H{
		"post":    post,
		"image":   w.ImageURL(post.Image),
		"content": content,
		"burmese": burmese,
	})
}
