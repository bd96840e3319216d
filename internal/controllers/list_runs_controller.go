package controllers

import (
	"net/http"
	"strconv"

	"github.com/lmartins/quizchain/internal/services"

	"github.com/gin-gonic/gin"
)

type listRunsController struct{ svc services.RunService }

func NewListRunsController(svc services.RunService) *listRunsController {
	return &listRunsController{svc}
}

func (h *listRunsController) Handle(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' (1-100)"})
		return
	}
	runs, err := h.svc.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
