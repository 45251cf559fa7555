package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"prayertimes.app/config"
	apperrors "prayertimes.app/errors"
	"prayertimes.app/models"
	"prayertimes.app/prayer"
	"prayertimes.app/service"
	"prayertimes.app/timetable"
)

// Server represents the HTTP server and API handler
type Server struct {
	router    *gin.Engine
	config    *config.Config
	clock     *prayer.Clock
	evaluator *prayer.Evaluator
	source    timetable.Source
	repo      service.SubscriptionRepositoryInterface
	dispatch  service.DispatchServiceInterface
}

// ServerOptions carries the server's collaborators
type ServerOptions struct {
	Config   *config.Config
	Clock    *prayer.Clock
	Source   timetable.Source
	Repo     service.SubscriptionRepositoryInterface
	Dispatch service.DispatchServiceInterface
}

// NewServer creates and configures a new HTTP server
func NewServer(opts ServerOptions) *Server {
	router := gin.Default()

	server := &Server{
		router:    router,
		config:    opts.Config,
		clock:     opts.Clock,
		evaluator: prayer.NewEvaluator(opts.Clock),
		source:    opts.Source,
		repo:      opts.Repo,
		dispatch:  opts.Dispatch,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/subscribe", s.subscribe)
		api.POST("/unsubscribe", s.unsubscribe)
		api.POST("/send", s.send)
		api.POST("/send-to", s.sendTo)
		api.GET("/send-today", s.sendToday)
		api.POST("/send-today", s.sendToday)
		api.GET("/debug-subs", s.debugSubs)
		api.GET("/timetable/today", s.timetableToday)
		api.GET("/now", s.now)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("Subscription binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("invalid subscription format"))
		return
	}

	subscription := &models.PushSubscription{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}

	if err := s.repo.Add(subscription); err != nil {
		s.handleError(c, apperrors.NewDatabaseError("failed to register subscription", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) unsubscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("Unsubscribe binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("invalid subscription format"))
		return
	}

	if err := s.repo.Remove(req.Endpoint); err != nil {
		s.handleError(c, apperrors.NewDatabaseError("failed to remove subscription", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) send(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.handleError(c, apperrors.NewValidationError("invalid notification format"))
		return
	}

	sent, removed, err := s.dispatch.NotifyAll(&req)
	if err != nil {
		slog.Error("Broadcast error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": sent, "removed": removed})
}

func (s *Server) sendTo(c *gin.Context) {
	var req models.SendToRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Subscription.Endpoint == "" {
		s.handleError(c, apperrors.NewValidationError("missing-subscription"))
		return
	}

	if err := s.dispatch.NotifyOne(&req); err != nil {
		slog.Error("Targeted send error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": 1})
}

// sendToday is the minute-trigger boundary: an external scheduler invokes
// it every minute with a bearer credential. Authorization happens before
// any work.
func (s *Server) sendToday(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if s.config.Cron.Secret == "" || auth != "Bearer "+s.config.Cron.Secret {
		s.handleError(c, apperrors.NewUnauthorizedError("missing or invalid cron credential"))
		return
	}

	report, err := s.dispatch.Run(time.Now())
	if err != nil {
		slog.Error("Dispatch error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// debugSubs exposes endpoint identities only; key material never leaves
// the registry
func (s *Server) debugSubs(c *gin.Context) {
	subscriptions, err := s.repo.ListAll()
	if err != nil {
		s.handleError(c, apperrors.NewDatabaseError("failed to list subscriptions", err))
		return
	}

	endpoints := make([]string, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		endpoints = append(endpoints, subscription.Endpoint)
	}

	c.JSON(http.StatusOK, gin.H{"count": len(endpoints), "endpoints": endpoints})
}

func (s *Server) timetableToday(c *gin.Context) {
	dateKey := s.clock.DateKey(time.Now())

	day, err := s.source.Day(dateKey)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if day == nil {
		c.JSON(http.StatusOK, gin.H{"date": dateKey, "available": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": dateKey, "available": true, "day": day})
}

// now serves the evaluator's output for thin clients that do not run the
// evaluation loop themselves
func (s *Server) now(c *gin.Context) {
	now := time.Now()

	today, err := s.source.Day(s.clock.DateKey(now))
	if err != nil {
		s.handleError(c, err)
		return
	}
	tomorrow, err := s.source.Day(s.clock.NextDateKey(now))
	if err != nil {
		tomorrow = nil
	}

	c.JSON(http.StatusOK, s.evaluator.Evaluate(today, tomorrow, now))
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case apperrors.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case apperrors.UnauthorizedError:
			statusCode = http.StatusUnauthorized
			message = "Unauthorized"
		case apperrors.PushError:
			statusCode = http.StatusServiceUnavailable
			message = "Push delivery unavailable"
		case apperrors.TimetableReadError:
			statusCode = http.StatusInternalServerError
			message = "Unable to read timetable"
		case apperrors.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
