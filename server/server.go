// Package server exposes the agent over HTTP. One endpoint accepts inbound
// messages the way a messaging webhook would deliver them.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/agent/turn"
)

type Config struct {
	Addr         string        `split_words:"true" default:":8080"`
	TurnTimeout  time.Duration `split_words:"true" default:"60s"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"90s"`
}

// TurnHandler is what the server needs from the scheduler.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req turn.TurnRequest) (*contractx.TurnResult, error)
}

type Server struct {
	echo    *echo.Echo
	handler TurnHandler
	cfg     Config
}

func New(handler TurnHandler, cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, handler: handler, cfg: cfg}
	e.GET("/healthz", s.health)
	e.POST("/v1/messages", s.postMessage)
	return s
}

func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout
	log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	return s.echo.Start(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type messageResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
	Escalated      bool   `json:"escalated"`
}

func (s *Server) postMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	req.Text = strings.TrimSpace(req.Text)
	if req.From == "" || req.To == "" || req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from, to, and text are required")
	}

	ctx := c.Request().Context()
	if s.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := s.handler.HandleTurn(ctx, turn.TurnRequest{From: req.From, To: req.To, Text: req.Text})
	if err != nil {
		if errors.Is(err, contractx.ErrUnknownTenant) {
			return echo.NewHTTPError(http.StatusNotFound, "no business registered for this number")
		}
		log.Error().Err(err).Str("from", req.From).Str("to", req.To).Msg("turn failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not process the message")
	}

	log.Info().
		Str("conversation", result.ConversationID).
		Bool("escalated", result.Escalated).
		Dur("elapsed", time.Since(started)).
		Msg("turn completed")

	return c.JSON(http.StatusOK, messageResponse{
		Reply:          result.Reply,
		ConversationID: result.ConversationID,
		Escalated:      result.Escalated,
	})
}
