package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/exam-scheduler-api/internal/app"
	"github.com/noah-isme/exam-scheduler-api/internal/handler"
	"github.com/noah-isme/exam-scheduler-api/internal/middleware"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-scheduler-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics, cfg.APIPrefix))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.ReadinessChecks())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.JWT.Enabled {
		api.Use(middleware.JWT(a.Auth))
	} else {
		api.Use(middleware.Anonymous())
	}

	planners := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RolePlanner)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	scheduling := handler.NewSchedulingHandler(a.Scheduling, a.Manual)
	api.POST("/schedule", planners, scheduling.Run)
	api.GET("/schedule/runs", scheduling.Runs)
	api.POST("/manual-schedule", planners, scheduling.Manual)

	conflicts := handler.NewConflictHandler(a.Conflicts)
	api.GET("/conflicts", conflicts.List)

	timeSlots := handler.NewTimeSlotHandler(a.TimeSlots)
	api.GET("/timeslots", timeSlots.List)
	api.POST("/timeslots/generate", planners, timeSlots.Generate)

	catalog := handler.NewCatalogHandler(a.Catalog)
	api.GET("/rooms", catalog.ListRooms)
	api.GET("/rooms/:id", catalog.GetRoom)
	api.POST("/rooms", admins, catalog.CreateRoom)
	api.GET("/proctors", catalog.ListProctors)
	api.GET("/proctors/:id", catalog.GetProctor)
	api.POST("/proctors", admins, catalog.CreateProctor)
	api.GET("/exams", catalog.ListExams)
	api.GET("/exams/:id", catalog.GetExam)
	api.POST("/exams", planners, catalog.CreateExam)
	api.DELETE("/exams/:id", admins, catalog.DeleteExam)
	api.POST("/exams/:id/unschedule", planners, catalog.UnscheduleExam)

	stats := handler.NewStatsHandler(a.Stats)
	api.GET("/stats", stats.Get)

	return r
}
