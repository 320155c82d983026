package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"portfolio/admin"
	"portfolio/backend"
	"portfolio/cache"
	"portfolio/common"
	"portfolio/database"
	"portfolio/editor"
	"portfolio/session"
	"portfolio/status"
	"portfolio/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	apiBase := os.Getenv("API_BASE_URL")
	if apiBase == "" {
		log.Fatal("API_BASE_URL environment variable not set")
	}

	creds := session.NewCredentials(db)
	api := backend.NewClient(apiBase, creds)
	store := session.NewStore(api, creds)

	// Reconcile the persisted token with the backend in the background; the
	// route guard shows the waiting page until this settles.
	go store.CheckStatus(context.Background())

	checker := status.NewChecker(api, 30*time.Second)
	go checker.Start(context.Background())

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	cookieStore := cookie.NewStore([]byte(sessionSecret))
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("portfolio-session", cookieStore))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"owner": func() string {
			name := os.Getenv("ADMIN_NAME")
			if name == "" {
				return "Portfolio"
			}
			return name
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	router.Use(cache.Middleware(5 * time.Minute))

	about := ""
	if raw, err := os.ReadFile("about.md"); err == nil {
		about = string(raw)
	}

	imageBase := os.Getenv("IMAGE_BASE_URL")
	if imageBase == "" {
		imageBase = apiBase + "/uploads"
	}

	adminModule := admin.NewAdminModule(api, store, editor.NewManager(api, imageBase))
	adminModule.RegisterRoutes(router)

	webModule := web.NewWebModule(api, apiBase, about)
	webModule.RegisterRoutes(router)

	checker.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
