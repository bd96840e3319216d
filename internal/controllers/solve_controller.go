package controllers

import (
	"errors"
	"net/http"

	"github.com/lmartins/quizchain/internal/services"
	"github.com/lmartins/quizchain/pkg/auth"

	"github.com/gin-gonic/gin"
)

type solveController struct {
	svc       services.RunService
	validator auth.Validator
}

func NewSolveController(svc services.RunService, validator auth.Validator) *solveController {
	return &solveController{svc: svc, validator: validator}
}

type solveReq struct {
	URL    string `json:"url" binding:"required"`
	Secret string `json:"secret"`
	Email  string `json:"email"`
}

// Handle starts a chain run in the background and returns its ID. The caller
// authenticates with the shared quiz secret carried in the body, matching the
// grader's own submission protocol.
func (h *solveController) Handle(c *gin.Context) {
	var req solveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: url is required"})
		return
	}
	if _, err := h.validator.Validate(req.Secret); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid secret"})
		return
	}

	id, err := h.svc.StartRun(c.Request.Context(), req.URL, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrLocalTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start run"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": id})
}
