package handlers

import (
	"fmt"
	"net/http"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetGroups возвращает список работающих групп опроса.
// @Summary Получить группы опроса
// @Tags Polling
// @Produce json
// @Success 200 {object} models.GroupsResponse "Список групп со статистикой"
// @Router /polling [get]
func (h *Handler) GetGroups(c *gin.Context) {
	groups := h.usecase.GetGroups()
	c.JSON(http.StatusOK, models.GroupsResponse{
		Status: "ok",
		Count:  len(groups),
		Groups: groups,
	})
}

// CreateGroup создает группу опроса и сохраняет ее в БД.
// @Summary Создать группу опроса
// @Description Регистрирует группу с интервалом, политикой повторов и задачами и сразу запускает опрос.
// @Tags Polling
// @Accept json
// @Produce json
// @Param input body models.PollingGroupRequest true "Параметры группы"
// @Success 201 {object} models.GroupResponse "Созданная группа"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} models.ErrorResponse "Группа с таким id уже существует"
// @Router /polling [post]
func (h *Handler) CreateGroup(c *gin.Context) {
	var req models.PollingGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	h.logger.Info("Attempting to create polling group", "group", req.ID, "interval_ms", req.IntervalMs, "tasks", len(req.Tasks))

	info, err := h.usecase.CreateGroup(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.GroupResponse{Status: "ok", Group: info})
}

// AddTask добавляет задачу в группу опроса.
// @Summary Добавить задачу
// @Tags Polling
// @Accept json
// @Produce json
// @Param id path string true "ID группы"
// @Param input body models.TaskDefinition true "Описание задачи"
// @Success 200 {object} models.GroupResponse "Группа после добавления"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 404 {object} models.ErrorResponse "Группа не найдена"
// @Router /polling/{id}/tasks [post]
func (h *Handler) AddTask(c *gin.Context) {
	groupID := c.Param("id")

	var task models.TaskDefinition
	if err := c.ShouldBindJSON(&task); err != nil {
		h.BadRequest(c, err, "Invalid task payload")
		return
	}

	info, err := h.usecase.AddTask(groupID, task)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.GroupResponse{Status: "ok", Group: info})
}

// StopGroup останавливает группу опроса.
// @Summary Остановить группу
// @Tags Polling
// @Produce json
// @Param id path string true "ID группы"
// @Success 200 {object} models.MessageResponse "Сообщение об успешной остановке"
// @Failure 404 {object} models.ErrorResponse "Группа не найдена"
// @Router /polling/{id} [delete]
func (h *Handler) StopGroup(c *gin.Context) {
	groupID := c.Param("id")
	h.logger.Info("Attempting to stop polling group", "group", groupID)

	if err := h.usecase.StopGroup(groupID); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Polling group %s stopped", groupID),
	})
}

// StopAllGroups останавливает все группы опроса.
// @Summary Остановить все группы
// @Tags Polling
// @Produce json
// @Success 200 {object} models.MessageResponse "Сообщение об успешной остановке"
// @Router /polling [delete]
func (h *Handler) StopAllGroups(c *gin.Context) {
	if err := h.usecase.StopAll(); err != nil {
		h.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "ok", Message: "All polling groups stopped"})
}
