// Package server 提供 HTTP 入口：/graphql /health /metrics
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"hackernews/auth"
	"hackernews/config"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
	shutdownTimeout = 10 * time.Second
)

// NewRouter 注册路由。每个请求的 Authorization 头在进入 GraphQL 前解析到 ctx 中。
func NewRouter(schema gql.Schema, decoder *auth.Decoder, metrics *Metrics, conf config.ServerConf) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(metrics))

	h := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   conf.Pretty,
		GraphiQL: conf.GraphiQL,
	})
	serveGraphQL := func(c *gin.Context) {
		ctx := auth.WithHeader(c.Request.Context(), decoder, c.GetHeader("Authorization"))
		h.ContextHandler(ctx, c.Writer, c.Request)
	}
	r.POST("/graphql", serveGraphQL)
	r.GET("/graphql", serveGraphQL)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.observeRequest(c.Request.Method, route, status)

		entry := log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start),
			requestIDKey: c.GetString(requestIDKey),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Debug("request")
		}
	}
}

// Serve 启动 srv，ctx 结束后优雅关闭，等待进行中的请求完成
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Now server is running on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "listen")
	}
	log.Info("server stopped")
	return nil
}
