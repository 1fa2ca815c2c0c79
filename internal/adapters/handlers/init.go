package handlers

import (
	"net/http"

	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/interfaces"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/pool", h.GetPool)

		polling := v1.Group("/polling")
		{
			polling.GET("", h.GetGroups)
			polling.POST("", h.CreateGroup)
			polling.DELETE("", h.StopAllGroups)
			polling.POST("/:id/tasks", h.AddTask)
			polling.DELETE("/:id", h.StopGroup)
		}

		registers := v1.Group("/registers")
		{
			registers.POST("/read", h.ReadRegisters)
			registers.POST("/write", h.WriteRegisters)
		}
	}

	return router
}
