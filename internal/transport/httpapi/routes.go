package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the family graph API on rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	trees := rg.Group("/trees")
	trees.POST("", h.HandleCreateTree)
	trees.GET("", h.HandleListPublicTrees)
	trees.GET("/:treeID", h.HandleGetTree)
	trees.PATCH("/:treeID", h.HandleUpdateTree)
	trees.DELETE("/:treeID", h.HandleDeleteTree)
	trees.PUT("/:treeID/collaborators/:userID", h.access(h.uc.AddCollaborator))
	trees.DELETE("/:treeID/collaborators/:userID", h.access(h.uc.RemoveCollaborator))
	trees.PUT("/:treeID/viewers/:userID", h.access(h.uc.AddViewer))
	trees.DELETE("/:treeID/viewers/:userID", h.access(h.uc.RemoveViewer))
	trees.GET("/:treeID/snapshot", h.HandleSnapshot)
	trees.GET("/:treeID/hierarchy", h.HandleHierarchy)
	trees.GET("/:treeID/connection", h.HandleConnection)
	trees.GET("/:treeID/statistics", h.HandleStatistics)
	trees.GET("/:treeID/members", h.HandleListMembers)
	trees.POST("/:treeID/members", h.HandleAddMember)
	trees.GET("/:treeID/relations", h.HandleListRelations)
	trees.POST("/:treeID/relations", h.HandleCreateRelation)
	trees.GET("/:treeID/events", h.HandleListEvents)
	trees.POST("/:treeID/events", h.HandleCreateEvent)

	rg.GET("/users/:userID/trees", h.HandleListUserTrees)

	members := rg.Group("/members")
	members.GET("/:memberID", h.HandleGetMember)
	members.PATCH("/:memberID", h.HandleUpdateMember)
	members.DELETE("/:memberID", h.HandleDeleteMember)
	members.GET("/:memberID/relations", h.HandleMemberRelations)
	members.GET("/:memberID/relations/:otherID", h.HandleDescribeRelation)

	relations := rg.Group("/relations")
	relations.GET("/:relationID", h.HandleGetRelation)
	relations.DELETE("/:relationID", h.HandleDeleteRelation)

	events := rg.Group("/events")
	events.GET("/:eventID", h.HandleGetEvent)
	events.PATCH("/:eventID", h.HandleUpdateEvent)
	events.DELETE("/:eventID", h.HandleDeleteEvent)
}

// NewRouter builds the engine with /healthz, /metrics served from gatherer,
// and the API under /v1.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", h.HandleHealth)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	RegisterRoutes(router.Group("/v1"), h)
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
