// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/container"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/handlers"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	structureHandlers := handlers.NewStructureHandlers(c.StructureService, c.Logger)
	collectionHandlers := handlers.NewCollectionHandlers(c.StructureService, c.Logger)
	mutationHandlers := handlers.NewMutationHandlers(c.StructureService, c.Logger)
	snapshotHandlers := handlers.NewSnapshotHandlers(c.StructureService, c.Logger)
	systemHandlers := handlers.NewSystemHandlers(c.StructureService, c.CacheManager, c.Logger)
	watchHandlers := handlers.NewWatchHandlers(c.VersionBroadcaster, c.Logger)

	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(c.TenantManager, c.PerfTracker))
	{
		structure := api.Group("/structure")
		{
			structure.POST("/initialize", structureHandlers.PostInitialize)
			structure.POST("/refresh", structureHandlers.PostRefresh)
			structure.GET("", structureHandlers.GetContentStructure)
			structure.GET("/nav", structureHandlers.GetNavigation)
			structure.GET("/breadcrumb", structureHandlers.GetBreadcrumb)
			structure.GET("/version", structureHandlers.GetVersion)
			structure.GET("/validate", structureHandlers.GetValidation)
			structure.POST("/invalidate", mutationHandlers.PostInvalidate)
			structure.POST("/dependencies", mutationHandlers.PostDependency)
		}

		nodes := api.Group("/nodes")
		{
			nodes.POST("", mutationHandlers.PostUpsertNodes)
			nodes.DELETE("", mutationHandlers.DeleteNode)
			nodes.POST("/reorder", mutationHandlers.PostReorder)
			nodes.POST("/move", mutationHandlers.PostMove)
			nodes.GET("/:id/children", structureHandlers.GetNodeChildren)
			nodes.GET("/:id/descendants", structureHandlers.GetDescendants)
			nodes.GET("/:id/path", structureHandlers.GetNodePath)
		}

		collections := api.Group("/collections")
		{
			collections.GET("", collectionHandlers.GetCollections)
			collections.GET("/first", collectionHandlers.GetFirstCollection)
			collections.GET("/:identifier", collectionHandlers.GetCollection)
			collections.GET("/:identifier/stats", collectionHandlers.GetCollectionStats)
		}

		snapshots := api.Group("/snapshots")
		{
			snapshots.GET("", snapshotHandlers.GetSnapshots)
			snapshots.POST("", snapshotHandlers.PostSnapshot)
			snapshots.POST("/:id/rollback", snapshotHandlers.PostRollback)
		}

		api.GET("/watch", watchHandlers.WatchVersions)

		system := api.Group("/system")
		{
			system.GET("/health", systemHandlers.GetHealth)
			system.GET("/diagnostics", systemHandlers.GetDiagnostics)
			system.GET("/metrics", systemHandlers.GetMetrics)
			system.GET("/logs/levels", systemHandlers.GetLogLevels)
			system.POST("/logs/levels", systemHandlers.SetLogLevel)
		}
	}

	return r
}
