package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	coreerrors "rawbridge-core/internal/core/errors"
)

// Server 暴露 Prometheus 指标的 HTTP 服务
type Server struct {
	server   *http.Server
	router   *mux.Router
	listener net.Listener
}

// NewServer 在 listen 地址上创建指标服务，注册 /metrics、/health 与 /healthz
func NewServer(listen string, p *PrometheusMetrics) (*Server, error) {
	if p == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "metrics server requires the prometheus backend")
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError, "listen on %s", listen)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", p.Handler()).Methods("GET")
	router.HandleFunc("/health", handleHealth).Methods("GET", "HEAD")
	router.HandleFunc("/healthz", handleHealth).Methods("GET", "HEAD")

	return &Server{
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:   router,
		listener: ln,
	}, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Handler 路由，供测试直接调用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve 阻塞直到 ctx 取消或服务出错
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Dispose 立即关闭服务
func (s *Server) Dispose() error {
	err := s.server.Close()
	// 未 Serve 过的监听器不归 http.Server 管理
	_ = s.listener.Close()
	return err
}
