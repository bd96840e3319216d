package controllers

import (
	"errors"
	"net/http"

	"github.com/lmartins/quizchain/internal/services"
	"github.com/lmartins/quizchain/pkg/auth"

	"github.com/gin-gonic/gin"
)

type answerController struct {
	svc       services.RunService
	validator auth.Validator
}

// NewAnswerController builds the single-page diagnostic endpoint: render one
// page, report the extracted answer and submit target, submit nothing.
func NewAnswerController(svc services.RunService, validator auth.Validator) *answerController {
	return &answerController{svc: svc, validator: validator}
}

type answerReq struct {
	URL    string `json:"url" binding:"required"`
	Secret string `json:"secret"`
}

func (h *answerController) Handle(c *gin.Context) {
	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: url is required"})
		return
	}
	if _, err := h.validator.Validate(req.Secret); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid secret"})
		return
	}

	insp, err := h.svc.InspectPage(c.Request.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidURL), errors.Is(err, services.ErrLocalTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not render page"})
		}
		return
	}
	c.JSON(http.StatusOK, insp)
}
