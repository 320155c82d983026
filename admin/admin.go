package admin

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolio/backend"
	"portfolio/cache"
	"portfolio/editor"
	"portfolio/imageedit"
	"portfolio/models"
	"portfolio/session"
)

// maxImageSize caps uploaded images at 5 MB, matching the backend limit.
const maxImageSize = 5 << 20

// sessionKeyAdmin marks the browser session that completed login. The guard
// requires it on top of a verified session store, so a verified server state
// never authorizes an arbitrary browser.
const sessionKeyAdmin = "is_admin"

type AdminModule struct {
	api     *backend.Client
	store   *session.Store
	editors *editor.Manager
}

func NewAdminModule(api *backend.Client, store *session.Store, editors *editor.Manager) *AdminModule {
	return &AdminModule{
		api:     api,
		store:   store,
		editors: editors,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/logout", a.logout)

	adminGroup := router.Group("/admin")
	adminGroup.Use(a.requireAuth)
	{
		adminGroup.GET("/", a.listPosts)
		adminGroup.GET("/posts/new", a.newPost)
		adminGroup.POST("/posts", a.createPost)
		adminGroup.GET("/posts/:slug/edit", a.editPost)
		adminGroup.POST("/posts/:id", a.updatePost)
		adminGroup.POST("/posts/:id/delete", a.deletePost)

		adminGroup.POST("/api/upload", a.uploadImage)

		adminGroup.POST("/api/editor", a.openEditor)
		adminGroup.GET("/api/editor/:id", a.editorContent)
		adminGroup.POST("/api/editor/:id/select", a.editorSelect)
		adminGroup.POST("/api/editor/:id/confirm", a.editorConfirm)
		adminGroup.POST("/api/editor/:id/cancel", a.editorCancel)
		adminGroup.DELETE("/api/editor/:id", a.closeEditor)
	}
}

// requireAuth is the route guard. While the session store is still verifying,
// it renders the waiting page; once the state settles it either redirects to
// the login view (preserving the requested location) or lets the request
// through.
func (a *AdminModule) requireAuth(c *gin.Context) {
	switch a.store.State() {
	case session.StateLoading:
		c.HTML(http.StatusOK, "admin_loading.html", gin.H{})
		c.Abort()
		return
	case session.StateUnauthenticated:
		a.redirectToLogin(c)
		return
	}

	sess := sessions.Default(c)
	if admin, ok := sess.Get(sessionKeyAdmin).(bool); !ok || !admin {
		a.redirectToLogin(c)
		return
	}

	c.Next()
}

func (a *AdminModule) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(c.Request.URL.String()))
	c.Abort()
}

func (a *AdminModule) browserLoggedIn(c *gin.Context) bool {
	sess := sessions.Default(c)
	admin, ok := sess.Get(sessionKeyAdmin).(bool)
	return ok && admin && a.store.Authenticated()
}

func (a *AdminModule) loginPage(c *gin.Context) {
	if a.browserLoggedIn(c) {
		c.Redirect(http.StatusFound, "/admin/")
		return
	}
	c.HTML(http.StatusOK, "admin_login.html", gin.H{
		"redirect": c.Query("redirect"),
	})
}

func (a *AdminModule) loginPost(c *gin.Context) {
	token := strings.TrimSpace(c.PostForm("token"))
	redirect := c.PostForm("redirect")

	if token == "" {
		c.HTML(http.StatusBadRequest, "admin_login.html", gin.H{
			"error":    "Access token is required",
			"redirect": redirect,
		})
		return
	}

	outcome := a.store.Login(c.Request.Context(), token)
	if !outcome.Success {
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
			"error":    outcome.Message,
			"redirect": redirect,
		})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionKeyAdmin, true)
	if err := sess.Save(); err != nil {
		log.Printf("admin: saving browser session: %v", err)
	}

	if redirect == "" || !strings.HasPrefix(redirect, "/") {
		redirect = "/admin/"
	}
	c.Redirect(http.StatusFound, redirect)
}

func (a *AdminModule) logout(c *gin.Context) {
	a.store.Logout(c.Request.Context())

	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		log.Printf("admin: clearing browser session: %v", err)
	}

	c.Redirect(http.StatusFound, "/login")
}

func (a *AdminModule) listPosts(c *gin.Context) {
	posts, err := a.api.ListPosts(c.Request.Context())
	if err != nil {
		c.HTML(http.StatusBadGateway, "admin_posts.html", gin.H{
			"error": "Failed to load posts. Please check if the backend server is running.",
			"user":  a.store.User(),
		})
		return
	}

	query := c.Query("q")
	if query != "" {
		posts = filterPosts(posts, query)
	}

	c.HTML(http.StatusOK, "admin_posts.html", gin.H{
		"posts": posts,
		"q":     query,
		"msg":   flashMessage(c.Query("msg")),
		"user":  a.store.User(),
	})
}

func filterPosts(posts []models.Post, query string) []models.Post {
	query = strings.ToLower(query)
	var out []models.Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Slug), query) {
			out = append(out, p)
		}
	}
	return out
}

func flashMessage(code string) string {
	switch code {
	case "created":
		return "Post created successfully!"
	case "updated":
		return "Post updated successfully!"
	case "deleted":
		return "Post deleted successfully!"
	}
	return ""
}

func (a *AdminModule) newPost(c *gin.Context) {
	content := a.editors.Open("")
	burmese := a.editors.Open("")

	c.HTML(http.StatusOK, "admin_post_form.html", gin.H{
		"action":          "/admin/posts",
		"title":           "",
		"description":     "",
		"contentBurmese":  "",
		"image":           "",
		"editorID":        content.ID,
		"burmeseEditorID": burmese.ID,
		"user":            a.store.User(),
	})
}

func (a *AdminModule) createPost(c *gin.Context) {
	input, ok := a.bindPostForm(c, 0)
	if !ok {
		return
	}

	if err := a.api.CreatePost(c.Request.Context(), *input); err != nil {
		a.mutationFailed(c, err, "Failed to create post. Please try again.", *input)
		return
	}

	a.closeFormEditors(c)
	cache.ClearAll()
	c.Redirect(http.StatusFound, "/admin/?msg=created")
}

func (a *AdminModule) editPost(c *gin.Context) {
	slug := c.Param("slug")
	post, err := a.api.GetPostBySlug(c.Request.Context(), slug)
	if err != nil {
		c.HTML(http.StatusNotFound, "admin_error.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	content := a.editors.Open("")
	burmese := a.editors.Open("")

	c.HTML(http.StatusOK, "admin_post_form.html", gin.H{
		"action":          "/admin/posts/" + strconv.Itoa(post.ID),
		"post":            post,
		"title":           post.Title,
		"description":     post.Description,
		"contentBurmese":  post.ContentBurmese,
		"image":           post.Image,
		"editorID":        content.ID,
		"burmeseEditorID": burmese.ID,
		"user":            a.store.User(),
	})
}

func (a *AdminModule) updatePost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.HTML(http.StatusBadRequest, "admin_error.html", gin.H{"error": "Invalid post id"})
		return
	}

	input, ok := a.bindPostForm(c, id)
	if !ok {
		return
	}

	if err := a.api.UpdatePost(c.Request.Context(), *input); err != nil {
		a.mutationFailed(c, err, "Failed to update post. Please try again.", *input)
		return
	}

	a.closeFormEditors(c)
	cache.ClearAll()
	c.Redirect(http.StatusFound, "/admin/?msg=updated")
}

// bindPostForm validates the submitted form before any network call and
// derives the slug from the title. Returns ok=false after rendering the
// validation failure.
func (a *AdminModule) bindPostForm(c *gin.Context, id int) (*models.PostInput, bool) {
	title := strings.TrimSpace(c.PostForm("title"))
	description := c.PostForm("description")

	if title == "" || strings.TrimSpace(description) == "" {
		c.HTML(http.StatusBadRequest, "admin_post_form.html", gin.H{
			"error":           "Please fill in all required fields (Title and Content)",
			"action":          c.Request.URL.Path,
			"title":           title,
			"description":     description,
			"contentBurmese":  c.PostForm("content_burmese"),
			"image":           c.PostForm("image"),
			"editorID":        c.PostForm("editor_id"),
			"burmeseEditorID": c.PostForm("burmese_editor_id"),
			"user":            a.store.User(),
		})
		return nil, false
	}

	return &models.PostInput{
		ID:             id,
		Title:          title,
		Slug:           Slugify(title),
		Description:    description,
		ContentBurmese: c.PostForm("content_burmese"),
		Image:          c.PostForm("image"),
	}, true
}

// mutationFailed maps a create/update failure to the blocking message the user
// sees. Authentication failures redirect to login instead.
func (a *AdminModule) mutationFailed(c *gin.Context, err error, msg string, input models.PostInput) {
	log.Printf("admin: mutation failed: %v", err)
	if errors.Is(err, backend.ErrUnauthorized) {
		a.redirectToLogin(c)
		return
	}
	c.HTML(http.StatusBadGateway, "admin_post_form.html", gin.H{
		"error":           msg,
		"action":          c.Request.URL.Path,
		"title":           input.Title,
		"description":     input.Description,
		"contentBurmese":  input.ContentBurmese,
		"image":           input.Image,
		"editorID":        c.PostForm("editor_id"),
		"burmeseEditorID": c.PostForm("burmese_editor_id"),
		"user":            a.store.User(),
	})
}

func (a *AdminModule) closeFormEditors(c *gin.Context) {
	for _, field := range []string{"editor_id", "burmese_editor_id"} {
		if id := c.PostForm(field); id != "" {
			a.editors.Close(id)
		}
	}
}

func (a *AdminModule) deletePost(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	if err := a.api.DeletePost(c.Request.Context(), id); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed. Please log in again."})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error deleting post: " + err.Error()})
		return
	}

	cache.ClearAll()
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// uploadImage handles the featured-image flow: validate, optionally run the
// crop pipeline, then hand the encoded result to the backend.
func (a *AdminModule) uploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No image file provided"})
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image size should be less than 5MB."})
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please select a valid image file."})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read image"})
		return
	}

	filename := header.Filename
	if req, ok := cropRequestFromForm(c); ok {
		img, err := imageedit.Decode(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to process image. Please try again."})
			return
		}
		data, err = imageedit.Apply(img, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to process image. Please try again."})
			return
		}
		filename = "featured-" + uuid.New().String() + ".jpg"
	}

	served, err := a.api.UploadImage(c.Request.Context(), filename, data)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Please log in first to upload images."})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to upload image. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "filename": served})
}

// cropRequestFromForm reads the optional crop/scale/rotate parameters. ok is
// false when the form carries no crop at all, in which case the original file
// is uploaded untouched.
func cropRequestFromForm(c *gin.Context) (imageedit.Request, bool) {
	if c.PostForm("crop_width") == "" {
		return imageedit.Request{}, false
	}

	parse := func(key string) float64 {
		v, _ := strconv.ParseFloat(c.PostForm(key), 64)
		return v
	}

	unit := imageedit.UnitPixel
	if c.PostForm("crop_unit") == "%" {
		unit = imageedit.UnitPercent
	}

	crop := imageedit.Crop{
		Unit:   unit,
		X:      parse("crop_x"),
		Y:      parse("crop_y"),
		Width:  parse("crop_width"),
		Height: parse("crop_height"),
	}
	rotate, _ := strconv.Atoi(c.PostForm("rotate"))

	return imageedit.Request{
		Crop:          &crop,
		Fallback:      imageedit.DefaultCrop(),
		DisplayWidth:  parse("display_width"),
		DisplayHeight: parse("display_height"),
		Scale:         parse("scale"),
		Rotate:        rotate,
		PixelRatio:    parse("pixel_ratio"),
	}, true
}

// Slugify derives a URL slug from a title: lowercase, runs of anything outside
// [a-z0-9] collapsed to a single hyphen, leading and trailing hyphens
// stripped.
var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
