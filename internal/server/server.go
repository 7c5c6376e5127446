// Package server is the composition root: it wires the database, services,
// handlers, and scheduled jobs into a chi router and owns the process
// lifecycle including graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/syn-press/syn-api/internal/config"
	"github.com/syn-press/syn-api/internal/digest"
	"github.com/syn-press/syn-api/internal/handler"
	"github.com/syn-press/syn-api/internal/identity"
	"github.com/syn-press/syn-api/internal/mailer"
	"github.com/syn-press/syn-api/internal/media"
	"github.com/syn-press/syn-api/internal/middleware"
	sqliteRepo "github.com/syn-press/syn-api/internal/repository/sqlite"
	"github.com/syn-press/syn-api/internal/service"
)

// Server holds the router and the resources it must release on shutdown.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	digest *digest.Job
}

// New assembles the full dependency chain. Each layer receives only what it
// needs: services get repository interfaces, handlers get services.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := identity.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, err
	}

	mail := mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.FromName, cfg.SMTP.FromEmail)

	postService := service.NewPostService(db, db, logger)
	commentService := service.NewCommentService(db, db, db, logger)
	userService := service.NewUserService(db, db, logger)
	newsletterService := service.NewNewsletterService(db, mail, service.NewsletterOptions{
		AdminInbox:  cfg.SMTP.AdminInbox,
		SendWelcome: cfg.SMTP.SendWelcome,
		SiteURL:     cfg.BaseURL,
	}, logger)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
		digest: digest.New(db, db, mail, cfg.BaseURL, logger),
	}

	provider := identity.NewProvider(identity.ProviderConfig{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		AuthURL:      cfg.Provider.AuthURL,
		TokenURL:     cfg.Provider.TokenURL,
		UserInfoURL:  cfg.Provider.UserInfoURL,
		CallbackURL:  cfg.Provider.CallbackURL,
	})

	s.setupRoutes(
		tokens,
		handler.NewAuthHandler(provider, tokens, userService, cfg.BaseURL, int(cfg.SessionTTL.Seconds()), logger),
		handler.NewPostHandler(postService),
		handler.NewUploadHandler(media.NewSigner(cfg.Upload.PrivateKey, cfg.Upload.TokenTTL)),
		handler.NewCommentHandler(commentService),
		handler.NewUserHandler(userService),
		handler.NewNewsletterHandler(newsletterService),
	)

	return s, nil
}

func (s *Server) setupRoutes(
	tokens *identity.TokenService,
	auth *handler.AuthHandler,
	posts *handler.PostHandler,
	uploads *handler.UploadHandler,
	comments *handler.CommentHandler,
	users *handler.UserHandler,
	newsletter *handler.NewsletterHandler,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	requireAuth := identity.RequireAuth(tokens)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
		r.Post("/logout", auth.HandleLogout)
		r.With(requireAuth).Get("/me", auth.HandleMe)
	})

	optionalAuth := identity.OptionalAuth(tokens)

	s.router.Route("/posts", func(r chi.Router) {
		// public reads still see the caller's identity when a session exists
		r.With(optionalAuth).Get("/", posts.HandleList)
		// static segment registered before the {slug} wildcard
		r.With(requireAuth).Get("/upload-auth", uploads.HandleUploadAuth)
		r.With(optionalAuth).Get("/{slug}", posts.HandleGetBySlug)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", posts.HandleCreate)
			r.Patch("/{id}", posts.HandleUpdate)
			r.Delete("/{id}", posts.HandleDelete)
			r.Patch("/{id}/feature", posts.HandleFeature)
		})
	})

	s.router.Route("/comments", func(r chi.Router) {
		r.Get("/{postId}", comments.HandleListByPost)
		r.With(requireAuth).Post("/{postId}", comments.HandleCreate)
		r.With(requireAuth).Delete("/{id}", comments.HandleDelete)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/saved", users.HandleSaved)
		r.Patch("/save", users.HandleToggleSaved)
	})

	s.router.Post("/newsletter/subscribe", newsletter.HandleSubscribe)
}

// Start runs the HTTP server and the digest scheduler until a shutdown signal
// arrives, then drains in-flight requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	if err := s.digest.Start(s.cfg.DigestSchedule); err != nil {
		return err
	}
	defer s.digest.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
