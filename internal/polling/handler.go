package polling

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"claimgate/internal/logger"
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
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		poll := v1.Group("/poll")
		{
			poll.POST("", h.Poll)
			poll.POST("/all", h.PollAll)
		}
	}
}

// PollScope optionally narrows a poll cycle to one focal resource.
type PollScope struct {
	FocusType string `json:"focus_type"`
	FocusID   string `json:"focus_id"`
}

// Poll godoc
// @Summary      Run one poll cycle
// @Description  Retrieve outstanding adjudications, information requests and acknowledgments, optionally scoped to one focal resource
// @Tags         polling
// @Accept       json
// @Produce      json
// @Param        scope  body      PollScope  false  "Optional focus"
// @Success      200  {object}  PollResult
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /poll [post]
func (h *Handler) Poll(c *gin.Context) {
	var scope PollScope
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&scope); err != nil {
			h.HandleError(c, errors.ErrValidation.WithMessage("invalid poll scope").WithDetail("error", err.Error()))
			return
		}
	}

	var focus *models.Reference
	if scope.FocusID != "" {
		focus = &models.Reference{Type: scope.FocusType, ID: scope.FocusID}
	}

	result, err := h.Service.Poll(c.Request.Context(), focus)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PollAll godoc
// @Summary      Poll every focal resource with outstanding work
// @Description  Run one focused poll cycle per open pending interaction focus, in parallel
// @Tags         polling
// @Produce      json
// @Success      200  {object}  PollResult
// @Failure      422  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /poll/all [post]
func (h *Handler) PollAll(c *gin.Context) {
	result, err := h.Service.PollAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
