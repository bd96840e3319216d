package app

import (
	"net/http"

	"github.com/lmartins/quizchain/internal/controllers"
	"github.com/lmartins/quizchain/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupMappings(app *Application) {
	app.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := app.Engine.Group("/v1/quiz")
	{
		v1.POST("/solve",
			middleware.RateLimitSolve(app.RateLimiter, app.Config),
			controllers.NewSolveController(app.Runs, app.Validator).Handle)
		v1.POST("/answer", controllers.NewAnswerController(app.Runs, app.Validator).Handle)
		v1.GET("/runs", controllers.NewListRunsController(app.Runs).Handle)
		v1.GET("/runs/:id", controllers.NewGetRunController(app.Runs).Handle)
	}
}
