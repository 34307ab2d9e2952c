package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Dispatcher queues a message for delivery without waiting for it.
type Dispatcher interface {
	Dispatch(message string) bool
}

// NewRouter serves /healthz, /score and /alert from board.
func NewRouter(board *Board, dispatcher Dispatcher, logger *zap.Logger) http.Handler {
	logger = logger.Named("status")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(zapLoggerMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/score", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(board.Snapshot()); err != nil {
			logger.Error("error encoding score response", zap.Error(err))
		}
	})

	r.Post("/alert", func(w http.ResponseWriter, r *http.Request) {
		message, ok := board.LastMessage()
		if !ok {
			http.Error(w, "nothing has been notified yet", http.StatusConflict)
			return
		}
		if !dispatcher.Dispatch(message) {
			http.Error(w, "notification queue is full", http.StatusServiceUnavailable)
			return
		}
		logger.Info("manual alert queued", zap.String("message", message))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("alert queued"))
	})

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}

// Serve runs handler on addr until ctx is cancelled, then shuts down.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status API listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
