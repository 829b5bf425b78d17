package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Server 封装了标准库的 http.Server，统一超时设置与启动、关闭流程。
type Server struct {
	httpServer *http.Server
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithWriteTimeout 设置响应写出的超时。提交任务的请求会等待大模型返回，
// 该值需要大于单次调用超时乘以尝试次数。
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.httpServer.WriteTimeout = d
	}
}

// NewServer 使用给定的 handler（通常是 gin.Engine）创建服务器。
func NewServer(handler http.Handler, opts ...ServerOption) *Server {
	srv := &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":3001"
	}
	return srv
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. 正常关闭时返回 nil。
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
