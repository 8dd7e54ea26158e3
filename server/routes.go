package server

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on the engine. localDir is served under
// localPrefix so references written by the local backend resolve over HTTP.
func RegisterRoutes(engine *gin.Engine, h *Handler, version, localPrefix, localDir string) {
	engine.GET("/health", func(c *gin.Context) {
		RespondOK(c, gin.H{"status": "ok", "service": "trackd", "version": version})
	})

	engine.POST("/api/login", h.Login)

	apps := engine.Group("/api/applications")
	{
		apps.GET("", h.ListApplications)
		apps.POST("", h.CreateApplication)
		apps.GET("/:id", h.GetApplication)
		apps.PUT("/:id", h.UpdateApplication)
		apps.DELETE("/:id", h.DeleteApplication)
	}

	users := engine.Group("/api/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.PUT("/:username", h.UpdateUser)
		users.DELETE("/:username", h.DeleteUser)
	}

	engine.GET("/files/view", h.ViewFile)
	engine.GET("/files/download", h.DownloadFile)

	if localPrefix != "" && localDir != "" {
		engine.Static(localPrefix, localDir)
	}
}
