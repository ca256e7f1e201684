// Package app wires configuration, storage, locking and the ledger services
// into one graph shared by the HTTP server and the operator CLIs.
package app

import (
	"fmt"

	"goldledger/internal/config"
	"goldledger/internal/infra"
	"goldledger/internal/repository"
	"goldledger/internal/service"
	"goldledger/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// App is the dependency graph: Service ← Repository ← DB/Redis.
type App struct {
	Config *config.Config

	// DB and RDB are nil when the corresponding backend is not in use.
	DB  *gorm.DB
	RDB *redis.Client

	MailCB     *infra.CircuitBreaker
	Mailer     *infra.Mailer
	Dispatcher *worker.Dispatcher

	LedgerRepo   repository.LedgerRepository
	SupplierRepo repository.SupplierRepository
	ProductRepo  repository.ProductRepository
	UserRepo     repository.UserRepository

	Purities      service.StaticPurityTable
	Snapshots     *service.SnapshotCache
	Ledger        service.OwnershipLedger
	Costing       service.CostingEngine
	Conversions   service.KaratConversionService
	Consolidation service.ConsolidationService
	Validator     service.BalanceValidator
	Credit        service.SupplierCreditGuard
	Suppliers     service.SupplierService
	Products      service.ProductService
	Auth          service.AuthService

	LowOwnershipThreshold decimal.Decimal
}

// Build connects the configured backends and wires every service.
func Build(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	purities, err := service.ParsePurityTable(cfg.KaratPurities)
	if err != nil {
		return nil, fmt.Errorf("KARAT_PURITIES: %w", err)
	}
	a.Purities = purities

	threshold, err := decimal.NewFromString(cfg.LowOwnershipThresholdGrams)
	if err != nil {
		return nil, fmt.Errorf("LOW_OWNERSHIP_THRESHOLD_GRAMS: %w", err)
	}
	a.LowOwnershipThreshold = threshold

	if err := a.openStores(); err != nil {
		return nil, err
	}

	locker, err := a.locker()
	if err != nil {
		return nil, err
	}

	a.MailCB = infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())
	a.Mailer = infra.NewMailer(cfg, a.MailCB)

	opts := service.LedgerOptions{DefaultCurrency: cfg.DefaultCurrency}
	a.Snapshots = service.NewSnapshotCache(a.LedgerRepo, a.RDB, cfg.BalanceCacheTTL)
	opts.Cache = a.Snapshots
	if a.RDB != nil {
		a.Dispatcher = worker.NewDispatcher(a.RDB)
		opts.Events = a.Dispatcher
	}

	uow := service.NewUnitOfWork(a.LedgerRepo, locker)
	recorder := service.NewMovementRecorder(nil)

	a.Credit = service.NewSupplierCreditGuard(service.NewSupplierRegistry(a.SupplierRepo, a.LedgerRepo))
	a.Ledger = service.NewOwnershipLedger(uow, a.LedgerRepo, recorder, a.Credit, opts)
	a.Costing = service.NewCostingEngine(a.LedgerRepo)
	a.Conversions = service.NewKaratConversionService(uow, a.LedgerRepo, recorder, purities, opts)
	a.Consolidation = service.NewConsolidationService(uow, a.LedgerRepo, recorder, opts)
	a.Validator = service.NewBalanceValidator(a.Snapshots, service.NewCatalog(a.ProductRepo))
	a.Suppliers = service.NewSupplierService(a.SupplierRepo)
	a.Products = service.NewProductService(a.ProductRepo, purities)
	a.Auth = service.NewAuthService(a.UserRepo, cfg)

	return a, nil
}

func (a *App) openStores() error {
	cfg := a.Config
	switch cfg.StoreBackend {
	case "memory":
		log.Warn().Msg("using in-memory store; ledger state is lost on restart")
		a.LedgerRepo = repository.NewMemoryLedgerStore()
		a.SupplierRepo = repository.NewMemorySupplierRepository()
		a.ProductRepo = repository.NewMemoryProductRepository()
		a.UserRepo = repository.NewMemoryUserRepository()
	case "postgres", "":
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := infra.RunMigrations(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.LedgerRepo = repository.NewLedgerRepository(db)
		a.SupplierRepo = repository.NewSupplierRepository(db)
		a.ProductRepo = repository.NewProductRepository(db)
		a.UserRepo = repository.NewUserRepository(db)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.RedisEnabled {
		rdb, err := infra.NewRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.RDB = rdb
	}
	return nil
}

func (a *App) locker() (infra.Locker, error) {
	cfg := a.Config
	switch cfg.LockBackend {
	case "memory", "":
		return infra.NewMemoryLocker(cfg.LockTimeout), nil
	case "redis":
		if a.RDB == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ENABLED")
		}
		return infra.NewRedisLocker(a.RDB, cfg.LockTTL, cfg.LockTimeout), nil
	}
	return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.LockBackend)
}

// WorkerHandlers maps queue job types to their processors.
func (a *App) WorkerHandlers() map[string]worker.JobHandler {
	return map[string]worker.JobHandler{
		worker.JobLedgerEvent: worker.NewLedgerEventWorker(a.RDB),
		worker.JobAlertDigest: worker.NewAlertDigestWorker(a.Mailer, a.Config.AlertEmailTo),
	}
}

// Close releases database and redis connections.
func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
