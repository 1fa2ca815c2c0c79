package handlers

import (
	"net/http"

	"github.com/iwtcode/modbusAdapter/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GetPool возвращает состояние пула подключений.
// @Summary Состояние пула
// @Tags Pool
// @Produce json
// @Success 200 {object} models.PoolResponse
// @Router /pool [get]
func (h *Handler) GetPool(c *gin.Context) {
	stats := h.usecase.GetPool()
	c.JSON(http.StatusOK, models.PoolResponse{Status: "ok", Pool: &stats})
}

// ReadRegisters выполняет разовое чтение.
// @Summary Прочитать значения
// @Description Читает count значений вида kind (holding, input, float, double, uint32, int32, signal, bits, coils).
// @Tags Registers
// @Accept json
// @Produce json
// @Param input body models.RegisterReadRequest true "Параметры чтения"
// @Success 200 {object} models.RegisterReadResponse
// @Failure 400 {object} models.ErrorResponse "Неверные параметры"
// @Failure 502 {object} models.ErrorResponse "Ошибка связи с устройством"
// @Failure 503 {object} models.ErrorResponse "Превышено ожидание слота запроса"
// @Failure 504 {object} models.ErrorResponse "Таймаут подключения"
// @Router /registers/read [post]
func (h *Handler) ReadRegisters(c *gin.Context) {
	var req models.RegisterReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	values, err := h.usecase.ReadRegisters(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RegisterReadResponse{
		Status:  "ok",
		Kind:    req.Kind,
		Address: req.Address,
		Values:  values,
	})
}

// WriteRegisters выполняет разовую запись.
// @Summary Записать значения
// @Tags Registers
// @Accept json
// @Produce json
// @Param input body models.RegisterWriteRequest true "Параметры записи"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse "Неверные параметры"
// @Router /registers/write [post]
func (h *Handler) WriteRegisters(c *gin.Context) {
	var req models.RegisterWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	if err := h.usecase.WriteRegisters(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Status: "ok", Message: "Values written"})
}
