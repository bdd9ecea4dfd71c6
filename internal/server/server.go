// Package server exposes the ingest and chat use cases over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"docuchat/internal/models"
)

// Service is what the handlers call into.
type Service interface {
	IngestFile(ctx context.Context, documentID, filename string, data []byte) (models.IngestResult, error)
	Chat(ctx context.Context, sessionID, question string) (models.ChatResult, error)
	History(sessionID string) []models.Message
}

type Server struct {
	echo *echo.Echo
	h    *Handler
}

// New builds the echo instance with recovery, body limit and request logging.
func New(svc Service, maxUpload string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	if maxUpload != "" {
		e.Use(middleware.BodyLimit(maxUpload))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))

	h := NewHandler(svc)
	h.RegisterRoutes(e)
	return &Server{echo: e, h: h}
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
