package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"docuchat/internal/models"
	"docuchat/internal/parser"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/ingest", h.Ingest)
	e.POST("/chat", h.Chat)
	e.GET("/sessions/:session_id/history", h.History)
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ingest stores an uploaded document. The optional document_id form field
// overrides the generated id.
// POST /ingest
func (h *Handler) Ingest(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart field \"file\" is required"})
	}
	if !parser.Supported(fh.Filename) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Invalid file type. Accepted: %s", strings.Join(parser.SupportedExtensions(), ", ")),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Error reading file: %v", err)})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Error reading file: %v", err)})
	}

	res, err := h.svc.IngestFile(c.Request().Context(), c.FormValue("document_id"), fh.Filename, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Chat answers a question within a session.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.svc.Chat(c.Request().Context(), req.SessionID, req.Question)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// History returns the stored transcript of a session.
// GET /sessions/:session_id/history
func (h *Handler) History(c echo.Context) error {
	id := c.Param("session_id")
	return c.JSON(http.StatusOK, HistoryResponse{SessionID: id, Messages: h.svc.History(id)})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError exposes the cause of client errors; server-side failures only
// reveal their kind.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	msg := http.StatusText(status)

	var opErr *models.OpError
	switch {
	case status == http.StatusBadRequest && errors.As(err, &opErr) && opErr.Err != nil:
		msg = opErr.Err.Error()
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	return c.JSON(status, map[string]string{"error": msg})
}
