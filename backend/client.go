package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"portfolio/models"
)

// ErrUnauthorized is returned for 401 responses on protected endpoints. Callers
// use it to prompt for re-authentication instead of showing a generic failure.
var ErrUnauthorized = errors.New("authentication failed")

// APIError is a backend-reported failure: a non-2xx status or a success=false
// envelope carrying a human-readable message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// TokenSource provides the current bearer token, or "" when not logged in.
// The session store implements this; the client never persists tokens itself.
type TokenSource interface {
	Token() string
}

// protectedEndpoints is the fixed allow-list of paths that receive the
// Authorization header. Everything else is called without it.
var protectedEndpoints = []string{
	"/api/posts/create.php",
	"/api/posts/update.php",
	"/api/posts/delete.php",
	"/api/upload.php",
	"/api/auth/verify.php",
}

// Client wraps all outbound calls to the remote backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	// Cookie jar so backend session cookies ride along, matching the
	// withCredentials behaviour the backend expects.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
}

func isProtected(path string) bool {
	for _, p := range protectedEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if isProtected(path) {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			log.Printf("api: no token available for protected endpoint %s", path)
		}
	}

	log.Printf("api request: %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	log.Printf("api response: %s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &env)
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(buf), "application/json", out)
}

// ListPosts fetches all posts. An envelope carrying only a message (no data)
// means the backend has no posts yet and is not an error.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var env struct {
		Data    []models.Post `json:"data"`
		Message string        `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/read.php", nil, "", &env); err != nil {
		return nil, err
	}
	if env.Data == nil && env.Message != "" {
		log.Printf("api: no posts: %s", env.Message)
	}
	return env.Data, nil
}

func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	path := "/api/posts/read_single.php?slug=" + url.QueryEscape(slug)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, in models.PostInput) error {
	return c.postJSON(ctx, "/api/posts/create.php", in, nil)
}

func (c *Client) UpdatePost(ctx context.Context, in models.PostInput) error {
	return c.postJSON(ctx, "/api/posts/update.php", in, nil)
}

func (c *Client) DeletePost(ctx context.Context, id int) error {
	return c.postJSON(ctx, "/api/posts/delete.php", map[string]int{"id": id}, nil)
}

// UploadImage sends the encoded image as a multipart body and returns the
// server-assigned filename.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var env struct {
		Success  bool   `json:"success"`
		Filename string `json:"filename"`
		Message  string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/upload.php", &body, mw.FormDataContentType(), &env); err != nil {
		return "", err
	}
	if !env.Success || env.Filename == "" {
		return "", &APIError{Status: http.StatusOK, Message: orDefault(env.Message, "upload failed")}
	}
	return env.Filename, nil
}

// LoginResult carries the outcome of a login attempt. Message is set on failure.
type LoginResult struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	Message string      `json:"message"`
}

func (c *Client) Login(ctx context.Context, token string) (*LoginResult, error) {
	var res LoginResult
	if err := c.postJSON(ctx, "/api/auth/login.php", map[string]string{"token": token}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Verify asks the backend whether the current token is still valid and returns
// the authoritative user record.
func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	var env struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify.php", nil, "", &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, ErrUnauthorized
	}
	return &env.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/api/auth/logout.php", struct{}{}, nil)
}

// Ping hits the backend connectivity probe. Any 2xx counts as online.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/test-connection.php", nil, "", nil)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
