package submission

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"claimgate/internal/logger"
	"claimgate/pkg/errors"
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
		submissions := v1.Group("/submissions")
		{
			submissions.POST("", h.Submit)
			submissions.POST("/drafts", h.CreateDraft)
			submissions.GET("/:id", h.GetSubmission)
			submissions.POST("/:id/cancel", h.CancelSubmission)
			submissions.POST("/:id/status-check", h.StatusCheck)
		}
	}
}

// Submit godoc
// @Summary      Submit a request to the exchange
// @Description  Build, send and classify one eligibility, prior-auth, claim or communication envelope
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        submission  body      SubmitRequest  true  "Submission payload"
// @Success      201  {object}  Submission
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Router       /submissions [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sub, err := h.Service.Submit(c.Request.Context(), req)
	if err != nil {
		if sub != nil {
			// The record exists in error state; return it with the failure.
			c.JSON(errors.ToHTTPStatus(err), gin.H{
				"submission": sub,
				"error":      errors.ToErrorResponse(err),
			})
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// CreateDraft godoc
// @Summary      Create a draft submission
// @Description  Validate and store a submission without sending it; draft claims can then be grouped into a batch
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        submission  body      SubmitRequest  true  "Submission payload"
// @Success      201  {object}  Submission
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /submissions/drafts [post]
func (h *Handler) CreateDraft(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sub, err := h.Service.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// GetSubmission godoc
// @Summary      Get a submission
// @Tags         submissions
// @Produce      json
// @Param        id   path      string  true  "Submission id"
// @Success      200  {object}  Submission
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /submissions/{id} [get]
func (h *Handler) GetSubmission(c *gin.Context) {
	sub, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CancelSubmission godoc
// @Summary      Cancel an in-flight submission
// @Description  Send a cancel-request for a pending or queued submission; terminal submissions fail the guard
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        id      path      string         true  "Submission id"
// @Param        cancel  body      CancelRequest  true  "Cancellation reason"
// @Success      200  {object}  Submission
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /submissions/{id}/cancel [post]
func (h *Handler) CancelSubmission(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sub, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// StatusCheck godoc
// @Summary      Status-check a queued submission
// @Description  Send a focused status-check envelope and apply any adjudication it returns
// @Tags         submissions
// @Produce      json
// @Param        id   path      string  true  "Submission id"
// @Success      200  {object}  Submission
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /submissions/{id}/status-check [post]
func (h *Handler) StatusCheck(c *gin.Context) {
	sub, err := h.Service.StatusCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
