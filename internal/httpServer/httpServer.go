package httpServer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/KotFed0t/quote_server/config"
	transport "github.com/KotFed0t/quote_server/internal/transport/http"
	"github.com/KotFed0t/quote_server/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type HTTPServer struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewRouter builds the gin engine with the request logging middleware and the
// quote routes.
func NewRouter(cfg *config.Config, ctrl *transport.Controller) *gin.Engine {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recover(), middleware.Logger())
	ctrl.RegisterRoutes(router)
	return router
}

func New(cfg *config.Config, ctrl *transport.Controller) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:    net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
			Handler: NewRouter(cfg, ctrl),
		},
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

func (s *HTTPServer) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped with error", slog.String("err", err.Error()))
			panic(err)
		}
	}()
	slog.Info("http server started!", slog.String("addr", s.srv.Addr))
}

// Stop waits for in-flight requests until the shutdown timeout runs out.
func (s *HTTPServer) Stop() {
	slog.Info("start stopping http server")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
		return
	}
	slog.Info("http server stopped")
}
