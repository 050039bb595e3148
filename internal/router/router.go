package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/support-engine/api"
	"github.com/psds-microservice/support-engine/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func New(support *handler.SupportHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, handler.Ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/messages/user", support.UserMessage)
		v1.POST("/messages/agent", support.AgentMessage)
		v1.POST("/messages/queue-reply", support.QueueReply)
		v1.POST("/messages/issue-choice", support.IssueChoice)

		v1.POST("/tickets/claim", support.ClaimTicket)
		v1.POST("/tickets/release", support.ReleaseTicket)
		v1.POST("/tickets/resolve", support.ResolveTicket)
		v1.POST("/tickets/close", support.CloseTicket)
		v1.GET("/tickets/open", support.OpenTickets)

		v1.POST("/agents/requests", support.SubmitAgentRequest)
		v1.GET("/agents/requests", support.PendingAgentRequests)
		v1.POST("/agents/requests/:id/approve", support.ApproveAgent)
		v1.POST("/agents/requests/:id/reject", support.RejectAgent)
		v1.PUT("/agents/:id/languages", support.SetAgentLanguages)
		v1.PUT("/agents/:id/commission", support.SetCommissionRate)
		v1.GET("/agents/:id", support.AgentProfile)
		v1.GET("/agents/:id/tickets", support.AgentTickets)

		v1.POST("/users/:id/ban", support.BanUser)
		v1.POST("/users/:id/unban", support.UnbanUser)
		v1.PUT("/users/:id/language", support.SetUserLanguage)
		v1.GET("/languages", support.LanguageOptions)

		v1.GET("/reports/summary", support.ReportSummary)
	}

	return r
}
