package httpserver

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/lombarde1/backtunder/internal/config"
	"github.com/lombarde1/backtunder/internal/handlers"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/middleware"
)

type Server struct {
	Serv *http.Server
}

func New(cfg config.Config, handler *handlers.Server) (*Server, error) {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(logging.Logg))

		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)
		// The payment provider calls back without a user token.
		r.Post("/payments/webhook", handler.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Post("/reward-chests/initialize", handler.InitializeChests)
			r.Get("/reward-chests", handler.GetChests)
			r.Post("/reward-chests/{chestNumber}/open", handler.OpenChest)

			r.Get("/users/profile", handler.GetProfile)
			r.Put("/users/profile", handler.UpdateProfile)

			r.Post("/payments/deposit", handler.CreateDeposit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Get("/reward-chests/stats", handler.ChestStats)

				r.Get("/users", handler.ListUsers)
				r.Get("/users/{id}", handler.GetUser)
				r.Put("/users/{id}", handler.UpdateUser)
				r.Delete("/users/{id}", handler.DeleteUser)
			})
		})
	})

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{Serv: serv}, nil
}

func (s *Server) Start() {
	go func() {
		logging.Logg.Info("Starting server", "address", s.Serv.Addr)
		if err := s.Serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logg.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.Serv.Shutdown(shutdownCtx); err != nil {
		logging.Logg.Error("Server shutdown error", "error", err)
		return err
	}

	logging.Logg.Info("Server stopped")
	return nil
}
