package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaizen-ngo/backend/internal/bootstrap"
	"github.com/kaizen-ngo/backend/internal/config"
	"github.com/kaizen-ngo/backend/internal/handler"
	"github.com/kaizen-ngo/backend/internal/logging"
	"github.com/kaizen-ngo/backend/internal/service"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("")
		logging.Fatal("load config failed", "error", err)
	}
	logging.Setup(cfg.LogLevel)

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open content backend", "backend", cfg.ContentBackend, "error", err)
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			slog.Warn("close backend", "error", err)
		}
	}()
	slog.Info("content backend ready", "backend", stores.Backend, "fallback", cfg.FallbackToFile)

	assets, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open asset storage", "storage", cfg.AssetStorage, "error", err)
	}
	policy, err := service.ParseUploadPolicy(cfg.GalleryUploadPolicy)
	if err != nil {
		logging.Fatal("invalid GALLERY_UPLOAD_POLICY", "error", err)
	}

	changeLogService := service.NewChangeLogService(stores.ChangeLogs)
	projectService := service.NewProjectService(stores.Projects, changeLogService)
	postService := service.NewPostService(stores.Posts, changeLogService)
	galleryService := service.NewGalleryService(projectService, assets, policy)

	h := handler.New(stores.DB, stores.Backend, cfg.FrontendURL)
	projectHandler := handler.NewProjectHandler(projectService)
	postHandler := handler.NewPostHandler(postService)
	adminHandler := handler.NewAdminHandler(projectService, changeLogService)
	galleryHandler := handler.NewGalleryHandler(galleryService)

	// 書き込みと管理 API は認証必須
	authn := auth.NewJWTAuthenticator(cfg.JWTSecret)
	wrapAuth := func(next http.HandlerFunc) http.Handler {
		if cfg.AuthRequired {
			return auth.RequireAuth(authn)(next)
		}
		return auth.DevAuth(next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("GET /api/projects", projectHandler.List)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.Get)
	mux.Handle("POST /api/projects", wrapAuth(projectHandler.Create))
	mux.Handle("PUT /api/projects/{id}", wrapAuth(projectHandler.Update))
	mux.Handle("DELETE /api/projects/{id}", wrapAuth(projectHandler.Delete))

	mux.HandleFunc("GET /api/posts", postHandler.List)
	mux.HandleFunc("GET /api/posts/{id}", postHandler.Get)
	mux.Handle("POST /api/posts", wrapAuth(postHandler.Create))
	mux.Handle("PUT /api/posts/{id}", wrapAuth(postHandler.Update))
	mux.Handle("DELETE /api/posts/{id}", wrapAuth(postHandler.Delete))

	mux.Handle("GET /api/admin/changes", wrapAuth(adminHandler.Changes))
	mux.Handle("GET /api/admin/stats", wrapAuth(adminHandler.Stats))
	mux.Handle("POST /api/admin/projects/{id}/gallery", wrapAuth(galleryHandler.Upload))

	if cfg.AssetStorage == config.AssetLocal {
		mux.Handle("GET "+cfg.UploadURLPrefix+"/", http.StripPrefix(cfg.UploadURLPrefix, http.FileServer(http.Dir(cfg.UploadDir))))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
