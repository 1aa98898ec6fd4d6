// Package httpapi serves the aggregated news feed and its operational
// endpoints over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/feedcache"
	"horse.fit/newsdesk/internal/news"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// NewsStore is the read surface the API serves from.
type NewsStore interface {
	ListItems(ctx context.Context, limit, offset int) ([]news.Item, error)
	CountItems(ctx context.Context) (int64, error)
	ToolSourceCounts(ctx context.Context) ([]db.LabelCount, error)
	TopTopics(ctx context.Context, limit int) ([]db.LabelCount, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Server struct {
	store  NewsStore
	feed   *feedcache.Registry
	logger zerolog.Logger
	opts   Options
}

func NewServer(store NewsStore, feed *feedcache.Registry, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		store:  store,
		feed:   feed,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  origins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil || s.feed == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.router()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newsdesk api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newsdesk api server stopped")
	return nil
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/news", s.handleNews)
	api.GET("/news/stats", s.handleStats)
	api.POST("/news/clear-cache", s.handleClearCache)

	return e
}

// handleNews serves one page of the feed. An item is skipped when any of its
// source URLs was already served to this session; the page is backfilled from
// deeper rows so consumers still receive a full page where possible.
func (s *Server) handleNews(c echo.Context) error {
	ctx := c.Request().Context()

	limit := parseBoundedInt(c.QueryParam("limit"), defaultFeedLimit, 1, maxFeedLimit)
	offset := parseBoundedInt(c.QueryParam("offset"), 0, 0, 1_000_000_000)
	sessionID := strings.TrimSpace(c.QueryParam("session"))
	if sessionID == "" {
		sessionID = feedcache.DefaultSession
	}

	reset := strings.EqualFold(c.QueryParam("reset"), "true")
	if offset == 0 || reset {
		s.feed.Reset(sessionID)
	}

	total, err := s.store.CountItems(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("count news items failed")
		return feedError(c, "failed to load news items")
	}

	items := make([]news.Item, 0, limit)
	scanned := 0
	exhausted := false
	for len(items) < limit {
		chunk, err := s.store.ListItems(ctx, limit, offset+scanned)
		if err != nil {
			s.logger.Error().Err(err).Msg("list news items failed")
			return feedError(c, "failed to load news items")
		}
		if len(chunk) == 0 {
			exhausted = true
			break
		}
		scanned += len(chunk)
		items = append(items, s.feed.FilterAndAdmit(sessionID, chunk, limit-len(items))...)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"count":      len(items),
		"total":      total,
		"offset":     offset,
		"limit":      limit,
		"has_more":   !exhausted && int64(offset+scanned) < total,
		"news_items": items,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	total, err := s.store.CountItems(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("count news items failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}
	byTool, err := s.store.ToolSourceCounts(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("tool source breakdown failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}
	topTopics, err := s.store.TopTopics(ctx, 10)
	if err != nil {
		s.logger.Error().Err(err).Msg("top topics failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}

	if byTool == nil {
		byTool = []db.LabelCount{}
	}
	if topTopics == nil {
		topTopics = []db.LabelCount{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_items":    total,
		"by_tool_source": byTool,
		"top_topics":     topTopics,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := "ok"
	database := "connected"
	code := http.StatusOK
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("database ping failed")
		status = "degraded"
		database = "disconnected"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":      status,
		"database":    database,
		"cached_urls": s.feed.Size(),
	})
}

func (s *Server) handleClearCache(c echo.Context) error {
	cleared := s.feed.Clear()
	s.logger.Info().Int("cleared", cleared).Msg("feed cache cleared")
	return c.JSON(http.StatusOK, map[string]any{
		"cleared": cleared,
	})
}

func feedError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error":      message,
		"news_items": []news.Item{},
	})
}

func parseBoundedInt(raw string, fallback, min, max int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
