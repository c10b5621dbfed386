// Package httpserver exposes the secretary over HTTP: an embedded web UI,
// the interaction/reset API, and the synthesized-audio file endpoint.
package httpserver

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chadiek/voice-secretary/internal/chat"
)

//go:embed index.html
var indexHTML []byte

// audio artifacts are served by exact name shape only; anything else is a 404.
var audioNameRe = regexp.MustCompile(`^reply_[0-9a-f]{32}\.mp3$`)

// Interactor is the orchestration surface the server talks to.
type Interactor interface {
	Interact(ctx context.Context, audioPath, textInput, voice string, transcript []chat.Turn) ([]chat.Turn, string)
	Reset(ctx context.Context) ([]chat.Turn, string)
}

// Server bundles the echo router and its dependencies.
type Server struct {
	Echo     *echo.Echo
	handler  Interactor
	audioDir string
}

type interactResponse struct {
	Messages []chat.Turn `json:"messages"`
	AudioURL *string     `json:"audio_url"`
}

// New constructs the HTTP server with routes and the standard logging and
// recovery middleware.
func New(handler Interactor) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{Echo: e, handler: handler, audioDir: os.TempDir()}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/", s.index)
	e.POST("/api/interact", s.interact)
	e.POST("/api/reset", s.reset)
	e.GET("/api/audio/:name", s.audio)

	return s
}

// Start runs the server on addr, blocking until it stops.
func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

// interact accepts a multipart form: optional "audio" file part, "text",
// "voice", and "state" (the browser-held transcript as JSON). The transcript
// travels by value both ways; the browser owns it between requests.
func (s *Server) interact(c echo.Context) error {
	var transcript []chat.Turn
	if state := c.FormValue("state"); state != "" {
		if err := json.Unmarshal([]byte(state), &transcript); err != nil {
			return c.String(http.StatusBadRequest, "invalid transcript state")
		}
	}

	audioPath, err := s.spoolUploadedAudio(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "failed to read uploaded audio")
	}
	if audioPath != "" {
		defer os.Remove(audioPath)
	}

	text := c.FormValue("text")
	voice := c.FormValue("voice")

	transcript, replyAudio := s.handler.Interact(c.Request().Context(), audioPath, text, voice, transcript)

	resp := interactResponse{Messages: transcript}
	if replyAudio != "" {
		url := "/api/audio/" + filepath.Base(replyAudio)
		resp.AudioURL = &url
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) reset(c echo.Context) error {
	transcript, _ := s.handler.Reset(c.Request().Context())
	return c.JSON(http.StatusOK, interactResponse{Messages: transcript})
}

func (s *Server) audio(c echo.Context) error {
	name := c.Param("name")
	if !audioNameRe.MatchString(name) {
		return c.String(http.StatusNotFound, "not found")
	}
	path := filepath.Join(s.audioDir, name)
	if _, err := os.Stat(path); err != nil {
		return c.String(http.StatusNotFound, "not found")
	}
	return c.File(path)
}

// spoolUploadedAudio writes the "audio" form part to a temp file and returns
// its path, or "" when no audio was uploaded.
func (s *Server) spoolUploadedAudio(c echo.Context) (string, error) {
	fh, err := c.FormFile("audio")
	if err != nil {
		// No audio part in the form.
		return "", nil
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ".webm"
	}
	dst, err := os.CreateTemp(s.audioDir, "input_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return dst.Name(), nil
}
