package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/casetrack-api/internal/handler"
	"github.com/noah-isme/casetrack-api/internal/middleware"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
	"github.com/noah-isme/casetrack-api/pkg/config"
	"github.com/noah-isme/casetrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/casetrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/casetrack-api/pkg/middleware/requestid"
)

type routes struct {
	tokens        middleware.TokenValidator
	botKeys       middleware.KeyVerifier
	metrics       *service.MetricsService
	health        *handler.MetricsHandler
	processes     *handler.ProcessHandler
	documents     *handler.DocumentHandler
	assignments   *handler.AssignmentHandler
	timeline      *handler.TimelineHandler
	notifications *handler.NotificationHandler
	bot           *handler.BotHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, rt routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.ContextOperatorKey))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(rt.metrics))

	r.GET("/health", rt.health.Health)
	r.GET("/ready", rt.health.Ready)
	r.GET("/metrics", rt.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	botGroup := api.Group("/bot", middleware.BotKey(rt.botKeys))
	botGroup.POST("/processes", rt.bot.CreateProcess)
	botGroup.GET("/clients/:phone/processes", rt.bot.ListByPhone)

	secured := api.Group("", middleware.JWT(rt.tokens))
	admin := middleware.RequireRoles(models.RoleAdmin)

	secured.GET("/metrics/summary", admin, rt.health.Summary)

	processes := secured.Group("/processes")
	processes.GET("/steps", rt.processes.Steps)
	processes.POST("", rt.processes.Create)
	processes.GET("/:id", rt.processes.Get)
	processes.POST("/:id/start", rt.processes.Start)
	processes.POST("/:id/steps", rt.processes.AdvanceStep)
	processes.PUT("/:id/pending-data", rt.processes.UpdatePendingData)
	processes.POST("/:id/payment", rt.processes.RecordPayment)
	processes.PATCH("/:id/client", rt.processes.UpdateClientField)
	processes.PATCH("/:id/company", rt.processes.UpdateCompanyField)
	processes.POST("/:id/complete", admin, rt.processes.Complete)
	processes.POST("/:id/cancel", admin, rt.processes.Cancel)
	processes.POST("/:id/reject", admin, rt.processes.Reject)
	processes.PATCH("/:id/status", admin, rt.processes.ChangeStatus)

	processes.GET("/:id/documents", rt.documents.List)
	processes.POST("/:id/documents", rt.documents.Submit)
	processes.POST("/:id/documents/:documentId/review", rt.documents.Review)

	processes.POST("/:id/assign", rt.assignments.Assign)
	processes.DELETE("/:id/assign", admin, rt.assignments.Release)
	processes.POST("/:id/auto-assign", admin, rt.assignments.AutoAssign)

	processes.GET("/:id/timeline", rt.timeline.ListForProcess)
	processes.GET("/:id/timeline/export", rt.timeline.Export)
	secured.GET("/timeline", rt.timeline.List)

	secured.GET("/operators/workload", admin, rt.assignments.Workload)

	bulk := secured.Group("/bulk", admin)
	bulk.POST("/reassign", rt.assignments.BulkReassign)
	bulk.POST("/priority", rt.assignments.BulkPriority)
	bulk.POST("/status", rt.assignments.BulkStatus)

	notifications := secured.Group("/notifications")
	notifications.GET("", rt.notifications.List)
	notifications.GET("/unread-count", rt.notifications.UnreadCount)
	notifications.POST("/view-all", rt.notifications.MarkAllViewed)
	notifications.POST("/:id/view", rt.notifications.MarkViewed)
	notifications.DELETE("/:id", rt.notifications.Delete)

	return r
}
