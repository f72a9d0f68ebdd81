package batch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"claimgate/internal/logger"
	"claimgate/internal/polling"
	"claimgate/pkg/errors"
	"claimgate/pkg/models"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	Poller polling.Service
}

func NewHandler(service Service, poller polling.Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
		Poller: poller,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		batches := v1.Group("/batches")
		{
			batches.POST("", h.CreateBatch)
			batches.GET("/:id", h.GetBatch)
			batches.POST("/:id/submit", h.SubmitBatch)
			batches.POST("/:id/poll", h.PollBatch)
		}
	}
}

// CreateBatch godoc
// @Summary      Group draft claims into a batch
// @Description  Assign sequence numbers to draft claim submissions sharing one receiver
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        batch  body      CreateRequest  true  "Member submission ids"
// @Success      201  {object}  Record
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /batches [post]
func (h *Handler) CreateBatch(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	record, err := h.Service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetBatch godoc
// @Summary      Get a batch
// @Tags         batches
// @Produce      json
// @Param        id   path      string  true  "Batch id"
// @Success      200  {object}  Record
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /batches/{id} [get]
func (h *Handler) GetBatch(c *gin.Context) {
	record, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// SubmitBatch godoc
// @Summary      Submit a batch to the exchange
// @Description  Send one envelope embedding every member claim with its sequence number
// @Tags         batches
// @Produce      json
// @Param        id   path      string  true  "Batch id"
// @Success      200  {object}  Record
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Router       /batches/{id}/submit [post]
func (h *Handler) SubmitBatch(c *gin.Context) {
	record, err := h.Service.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		if record != nil {
			c.JSON(errors.ToHTTPStatus(err), gin.H{
				"batch": record,
				"error": errors.ToErrorResponse(err),
			})
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// PollBatch godoc
// @Summary      Poll a batch for member adjudications
// @Description  Run one poll cycle scoped to the batch and return the updated record
// @Tags         batches
// @Produce      json
// @Param        id   path      string  true  "Batch id"
// @Success      200  {object}  Record
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Router       /batches/{id}/poll [post]
func (h *Handler) PollBatch(c *gin.Context) {
	batchID := c.Param("id")

	record, err := h.Service.Get(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if record.IsTerminal() {
		c.JSON(http.StatusOK, record)
		return
	}

	if _, err := h.Poller.Poll(c.Request.Context(), &models.Reference{Type: "Batch", ID: batchID}); err != nil {
		h.HandleError(c, err)
		return
	}

	record, err = h.Service.Get(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
