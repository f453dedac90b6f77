// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Server is a reference implementation of the receiving side of the internal
// API: it verifies request tokens and executes registered operations against
// the database it owns. Mount Handler into an existing mux, or run Serve
// directly. A process hosting a Server should ForceLocal its gate.
type Server struct {
	reg        *Registry
	verifier   *JWTSigner
	serializer Serializer
	log        zerolog.Logger
	limiter    *rate.Limiter
	path       string
	engine     *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerSerializer sets a custom serializer for the server
func WithServerSerializer(s Serializer) ServerOption {
	return func(srv *Server) { srv.serializer = s }
}

// WithServerLogger overrides the server's logger.
func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(srv *Server) { srv.log = l }
}

// WithRateLimit caps accepted requests with a token bucket.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(srv *Server) { srv.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRPCPath overrides the route the endpoint is served on.
func WithRPCPath(path string) ServerOption {
	return func(srv *Server) { srv.path = path }
}

// NewServer builds the endpoint over the given registry. The verifier must
// share its secret and audience with the callers' signers.
func NewServer(reg *Registry, verifier *JWTSigner, opts ...ServerOption) *Server {
	srv := &Server{
		reg:        reg,
		verifier:   verifier,
		serializer: defaultSerializer,
		log:        log.Logger,
		path:       DefaultRPCPath,
	}
	for _, opt := range opts {
		opt(srv)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(srv.log))
	if srv.limiter != nil {
		engine.Use(rateLimit(srv.limiter))
	}
	engine.POST(srv.path, srv.handleInvoke)
	srv.engine = engine
	return srv
}

// Handler returns the endpoint as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs the endpoint on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleInvoke(c *gin.Context) {
	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Jsonrpc != jsonrpcVersion || req.Method == "" {
		c.String(http.StatusBadRequest, "expected a jsonrpc %s request with a method", jsonrpcVersion)
		return
	}

	token := c.GetHeader("Authorization")
	if token == "" {
		c.String(http.StatusUnauthorized, "missing Authorization header")
		return
	}
	if err := s.verifier.Verify(token, req.Method); err != nil {
		s.log.Warn().Str("method", req.Method).Err(err).Msg("rejected internal api request")
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	op, ok := s.reg.Lookup(req.Method)
	if !ok {
		c.String(http.StatusBadRequest, "unknown method: %s", req.Method)
		return
	}
	args, err := s.decodeArgs(req.Params)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid params: %v", err)
		return
	}

	result, err := op.Handler(c.Request.Context(), args)
	if err != nil {
		s.log.Error().Str("method", req.Method).Err(err).Msg("internal api operation failed")
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}
	if result == nil {
		c.Status(http.StatusOK)
		return
	}
	body, err := s.serializer.Serialize(result)
	if err != nil {
		c.String(http.StatusInternalServerError, "serialize result: %v", err)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(body))
}

func (s *Server) decodeArgs(params string) (Params, error) {
	if params == "" {
		return Params{}, nil
	}
	v, err := s.serializer.Deserialize(params)
	if err != nil {
		return nil, err
	}
	switch args := v.(type) {
	case nil:
		return Params{}, nil
	case map[string]any:
		return Params(args), nil
	default:
		return nil, fmt.Errorf("expected an argument mapping, got %T", v)
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("internal_api_request")
	}
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.String(http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
