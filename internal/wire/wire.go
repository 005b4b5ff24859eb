// Package wire provides dependency injection for the requeue application.
// Services are built once per process from an explicit Config; there is no
// other global state.
package wire

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/requeue/internal/adapters/slurm"
	"github.com/example/requeue/internal/adapters/sqlite"
	"github.com/example/requeue/internal/app"
	"github.com/example/requeue/internal/config"
	"github.com/example/requeue/internal/db"
	"github.com/example/requeue/internal/logging"
	"github.com/example/requeue/internal/ports/primary"
)

// Services bundles the wired primary ports plus the shared handles the CLI
// needs directly (config for defaults, logger for command diagnostics).
type Services struct {
	Cfg *config.Config
	Log *zap.SugaredLogger

	Registry   primary.RegistryService
	Updater    primary.UpdaterService
	Reconciler primary.ReconcilerService
	Planner    primary.PlannerService
}

var (
	services *Services
	initErr  error
	once     sync.Once
)

// Load builds the service graph once and returns it on every call.
// cfgFile is the --config flag value ("" means default search paths).
func Load(cfgFile string) (*Services, error) {
	once.Do(func() {
		services, initErr = build(cfgFile)
	})
	return services, initErr
}

func build(cfgFile string) (*Services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store := sqlite.NewRegistryRepository(database, cfg.DBPath,
		time.Duration(cfg.LockTimeoutSeconds)*time.Second)
	sched := slurm.NewClient(cfg.Scheduler.QueueBin, cfg.Scheduler.IntrospectBin,
		time.Duration(cfg.Scheduler.TimeoutSeconds)*time.Second)

	reconciler := app.NewReconcilerService(sched, cfg.Scheduler.ManifestFlag, log)

	return &Services{
		Cfg:        cfg,
		Log:        log,
		Registry:   app.NewRegistryService(store, log),
		Updater:    app.NewUpdaterService(store, log),
		Reconciler: reconciler,
		Planner: app.NewPlannerService(store, reconciler,
			cfg.Scheduler.User, cfg.Planner.WorkerCommand, cfg.Scheduler.ManifestFlag, log),
	}, nil
}
