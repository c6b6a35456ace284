// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/distributed"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/manager"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/messaging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/performance"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/persistence/structure"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/schemas"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	StructureService   *services.StructureService
	VersionBroadcaster *messaging.VersionBroadcaster

	// Infrastructure Dependencies
	TenantManager    *tenant.Manager
	CacheManager     *manager.Manager
	DistributedCache *distributed.BadgerCache
	Logger           *logging.ChanneledLogger
	PerfTracker      *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(tenantManager *tenant.Manager, cacheManager *manager.Manager, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker()
	broadcaster := messaging.NewVersionBroadcaster(logger)
	schemaSource := schemas.NewFSLoader(logger)

	// Setup mode: with no storage backend configured the structure core
	// builds everything in memory.
	var repo repositories.StructureRepository
	if !config.SetupMode {
		repo = structure.NewRepository(tenantManager, logger)
	}

	var distCache repositories.DistributedCache
	badgerCache := distributed.NewBadgerCache(logger)
	if !config.SetupMode {
		distCache = badgerCache
	}

	structureService := services.NewStructureService(
		repo,
		distCache,
		schemaSource,
		cacheManager,
		logger,
		perfTracker,
		broadcaster,
	)

	return &Container{
		StructureService:   structureService,
		VersionBroadcaster: broadcaster,

		TenantManager:    tenantManager,
		CacheManager:     cacheManager,
		DistributedCache: badgerCache,
		Logger:           logger,
		PerfTracker:      perfTracker,
	}
}
