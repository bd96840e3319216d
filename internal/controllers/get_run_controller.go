package controllers

import (
	"net/http"

	"github.com/lmartins/quizchain/internal/services"

	"github.com/gin-gonic/gin"
)

type getRunController struct{ svc services.RunService }

func NewGetRunController(svc services.RunService) *getRunController {
	return &getRunController{svc}
}

func (h *getRunController) Handle(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.svc.GetRun(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}
