package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-solver/internal/clients"
	"go-solver/internal/config"
	"go-solver/internal/db"
	"go-solver/internal/events"
	"go-solver/internal/handlers"
	"go-solver/internal/repository"
	"go-solver/internal/services"
	"go-solver/internal/storage"
)

// ServiceContainer wires every component of the solver service.
type ServiceContainer struct {
	Config *config.Config
	DB     *gorm.DB

	// Repositories
	BatchRepo    repository.BatchRepository
	SolutionRepo repository.SolutionRepository

	// Storage
	ObjectStore *storage.DBObjectStore
	Advisor     *storage.BatchingAdvisor
	Bundler     *storage.Bundler

	// Clients
	NATSClient     *clients.NATSClient
	VenueClient    *clients.VenueClient
	RegistryClient *clients.RegistryClient

	// Services
	PushService    *services.WebSocketPushService
	ArchiveService *services.SolutionArchiveService
	SolveService   *services.BatchSolveService

	// Handlers
	BatchHandler     *handlers.BatchHandler
	SolveHandler     *handlers.SolveHandler
	AdviseHandler    *handlers.AdviseHandler
	WebSocketHandler *handlers.WebSocketHandler
	AdminAuthHandler *handlers.AdminAuthHandler
}

// NewServiceContainer builds the full dependency graph. NATS and chain
// submission are optional: without a NATS URL the service runs
// HTTP-only, and without a configured network solutions stay local.
func NewServiceContainer(cfg *config.Config, sign clients.SignerFunc) (*ServiceContainer, error) {
	container := &ServiceContainer{Config: cfg}

	database, err := db.Init(cfg)
	if err != nil {
		return nil, err
	}
	container.DB = database

	container.BatchRepo = repository.NewBatchRepository(database)
	container.SolutionRepo = repository.NewSolutionRepository(database)

	container.ObjectStore = storage.NewDBObjectStore(database)
	container.Advisor = storage.NewBatchingAdvisor(cfg.Storage.Advisor)
	container.Bundler = storage.NewBundler(container.ObjectStore, container.Advisor, logrus.StandardLogger())

	if cfg.NATS.URL != "" {
		natsClient, err := clients.NewNATSClient(&cfg.NATS)
		if err != nil {
			return nil, err
		}
		container.NATSClient = natsClient
	} else {
		logrus.Info("NATS not configured, running without event stream")
	}

	container.VenueClient = clients.NewVenueClient(&cfg.Venue)

	var submitter services.ChainSubmitter
	if network := cfg.ActiveNetwork(); network != nil {
		if sign == nil {
			return nil, fmt.Errorf("network %s configured but no signer provided", cfg.Blockchain.Network)
		}
		registryClient, err := clients.NewRegistryClient(network, common.HexToAddress(cfg.Solver.Address), sign)
		if err != nil {
			return nil, err
		}
		container.RegistryClient = registryClient
		submitter = registryClient
	} else {
		logrus.Info("No network configured, solutions will not be submitted on-chain")
	}

	var publisher services.EventPublisher
	if container.NATSClient != nil {
		publisher = events.NewPublisher(container.NATSClient)
	}

	container.PushService = services.NewWebSocketPushService()
	container.ArchiveService = services.NewSolutionArchiveService(container.Bundler, cfg.Storage.RetentionDays)
	container.SolveService = services.NewBatchSolveService(
		cfg,
		container.BatchRepo,
		container.VenueClient,
		submitter,
		container.SolutionRepo,
		container.BatchRepo,
		publisher,
		container.PushService,
		container.ArchiveService,
	)

	if container.NATSClient != nil {
		if err := events.SubscribeBatchReady(container.NATSClient, container.SolveService); err != nil {
			return nil, err
		}
	}

	container.BatchHandler = handlers.NewBatchHandler(container.BatchRepo, container.NATSClient)
	container.SolveHandler = handlers.NewSolveHandler(container.SolveService, container.SolutionRepo)
	container.AdviseHandler = handlers.NewAdviseHandler(container.Advisor)
	container.WebSocketHandler = handlers.NewWebSocketHandler(container.PushService)
	container.AdminAuthHandler = handlers.NewAdminAuthHandler()

	return container, nil
}

// Close releases held connections.
func (c *ServiceContainer) Close() {
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.RegistryClient != nil {
		c.RegistryClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// NoopSigner returns the transaction unchanged. Useful for development
// networks that accept unsigned transactions via an unlocked node, and
// to keep key management out of the solver entirely.
func NoopSigner() clients.SignerFunc {
	return func(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
		return tx, nil
	}
}
