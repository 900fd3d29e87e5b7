package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

const (
	// DefaultPath is where deliveries and CRC checks are served.
	DefaultPath = "/webhooks/twitter"
	// DefaultAddr is the listen address of Run.
	DefaultAddr = ":8080"

	maxDeliveryBytes = 1 << 20
	shutdownTimeout  = 10 * time.Second
)

// ServerConfig configures a webhook Server.
type ServerConfig struct {
	// ConsumerSecret of the app the webhook is registered for. Required.
	ConsumerSecret string
	Addr           string
	Path           string
	Logger         *zerolog.Logger
}

// Server answers CRC checks and forwards verified deliveries to a Dispatcher.
type Server struct {
	secret     string
	addr       string
	path       string
	dispatcher *Dispatcher
	router     *gin.Engine
	logger     zerolog.Logger

	// ctx is handed to handlers; deliveries outlive their HTTP request.
	ctx context.Context
}

// NewServer builds the gin router for cfg.
func NewServer(cfg ServerConfig, dispatcher *Dispatcher) (*Server, error) {
	if cfg.ConsumerSecret == "" {
		return nil, &pkgerrs.ConfigError{Field: "ConsumerSecret", Message: "required to answer CRC checks"}
	}
	if dispatcher == nil {
		return nil, &pkgerrs.ConfigError{Field: "Dispatcher", Message: "cannot be nil"}
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		secret:     cfg.ConsumerSecret,
		addr:       cfg.Addr,
		path:       cfg.Path,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "webhook").Logger(),
		ctx:        context.Background(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests)
	router.GET(s.path, s.handleCRC)
	router.POST(s.path, s.handleDelivery)
	s.router = router
	return s, nil
}

// Handler returns the router, for mounting in another server or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Msg("webhook request")
}

func (s *Server) handleCRC(c *gin.Context) {
	token := c.Query("crc_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crc_token is required"})
		return
	}
	s.logger.Info().Msg("answering CRC check")
	c.JSON(http.StatusOK, gin.H{"response_token": CRCResponse(s.secret, token)})
}

func (s *Server) handleDelivery(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDeliveryBytes+1))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if len(body) > maxDeliveryBytes {
		c.Status(http.StatusRequestEntityTooLarge)
		return
	}
	if !ValidateSignature(s.secret, body, c.GetHeader(SignatureHeader)) {
		s.logger.Warn().Str("remote", c.ClientIP()).Msg("rejecting delivery with bad signature")
		c.Status(http.StatusUnauthorized)
		return
	}

	events, err := ParseEvents(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting undecodable delivery")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.dispatcher.Enqueue(s.ctx, events)
	c.Status(http.StatusOK)
}

// Run serves until ctx is done, then shuts down gracefully and waits for
// running handlers.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Str("path", s.path).Msg("webhook server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.dispatcher.Close()
	s.logger.Info().Msg("webhook server stopped")
	return err
}
