package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PasswordHeader carries the admin password on gated routes.
const PasswordHeader = "X-Admin-Password"

// RequestID tags every request with an X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("reqid", id)
		c.Next()
	}
}

// RequirePassword rejects requests whose admin password does not match.
func (h *APIHandler) RequirePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Service.Authorize(c.GetHeader(PasswordHeader)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
			return
		}
		c.Next()
	}
}

// NewRouter builds the gin engine with all API routes.
func NewRouter(h *APIHandler, allowOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), RequestID())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", PasswordHeader, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.GET("/ping", PingHandler)
		api.GET("/data", h.GetData)
		api.GET("/stats", h.GetStats)
		api.GET("/classes/:className/students", h.GetStudentsByClass)
		api.GET("/import/template", h.DownloadTemplate)
		api.POST("/auth/verify", h.VerifyPassword)

		gated := api.Group("", h.RequirePassword())
		gated.POST("/classes/:className/attendance", h.RecordAttendance)
		gated.POST("/import/students", h.ImportStudents)
		gated.POST("/students", h.AddStudent)
		gated.DELETE("/students", h.ClearStudents)
		gated.PUT("/settings", h.SaveSettings)
		gated.POST("/sync/pull", h.PullFromRemote)
	}
	return router
}
