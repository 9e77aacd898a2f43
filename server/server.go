// Package server 是 HTTP 服务边界：路由、请求解析、错误映射、观测。
//
// 领域错误在这里被映射为结构化错误响应；内部错误只返回通用失败，
// 不泄漏内部状态。目录加载失败发生在进程启动路径，根本到不了本包。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/profile"
	"github.com/rushteam/recserve/recommend"
)

// Server 是推荐服务的 HTTP 入口。
type Server struct {
	store    *catalog.Store
	resolver *profile.Resolver
	svc      *recommend.Service
	logger   zerolog.Logger

	httpServer *http.Server
}

// New 构建 Server 并装配路由。
func New(addr string, store *catalog.Store, resolver *profile.Resolver, svc *recommend.Service, logger zerolog.Logger) *Server {
	s := &Server{
		store:    store,
		resolver: resolver,
		svc:      svc,
		logger:   logger,
	}
	catalogSize.Set(float64(store.Len()))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/user/{userID}", s.handleUser)
	r.Get("/movie/{movieID}", s.handleMovie)
	r.Post("/recommend", s.handleRecommend)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Handler 暴露路由（测试用）。
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe 启动 HTTP 服务并阻塞直至 ctx 取消，随后优雅停机。
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
