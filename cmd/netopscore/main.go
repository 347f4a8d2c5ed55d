package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/discovery"
	"github.com/ternarybob/netopscore/internal/engine"
	"github.com/ternarybob/netopscore/internal/executor"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/inventory"
	"github.com/ternarybob/netopscore/internal/models"
	"github.com/ternarybob/netopscore/internal/notify"
	"github.com/ternarybob/netopscore/internal/probes"
	queuebadger "github.com/ternarybob/netopscore/internal/queue/badger"
	"github.com/ternarybob/netopscore/internal/scheduler"
	storagebadger "github.com/ternarybob/netopscore/internal/storage/badger"
	"github.com/ternarybob/netopscore/internal/targeting"
)

// configPaths allows -config to be repeated, later files overriding earlier ones.
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(v string) error {
	*c = append(*c, v)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "server port (overrides config)")
	serverHost  = flag.String("host", "", "server host (overrides config)")
)

func init() {
	flag.Var(&configFiles, "config", "configuration file path (repeatable, later files override earlier ones)")
	flag.Var(&configFiles, "c", "configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if len(configFiles) == 0 {
		if _, err := os.Stat("netopscore.toml"); err == nil {
			configFiles = append(configFiles, "netopscore.toml")
		}
	}

	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(cfg, *serverPort, *serverHost)

	logger := common.SetupLogger(cfg.Logging)
	logger.Info().Strs("config_files", configFiles).Msg("netopscore starting")

	db, err := storagebadger.NewDB(logger, cfg.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open badger database")
	}
	defer db.Close()

	persistence := storagebadger.NewPersistence(db, logger)
	broker := queuebadger.NewBroker(
		db,
		common.Duration(cfg.Queue.VisibilityTimeout, 5*time.Minute),
		cfg.Queue.MaxReceive,
	)
	inv := inventory.NewClient(cfg.Inventory.BaseURL, cfg.Inventory.Token, common.Duration(cfg.Inventory.Timeout, 10*time.Second))
	hub := notify.NewHub(logger)

	probeSet := probes.NewProbeSet(cfg.Probes.ProbesPerSecond)
	resolver := targeting.NewResolver(inv)
	exec := executor.New(probeSet, inv)

	eng := engine.New(exec, resolver)
	eng.Broker = broker
	eng.Notifier = hub
	eng.Audit = hub
	eng.ChordTimeout = common.Duration(cfg.Engine.ChordTimeout, 600*time.Second)
	eng.ChordPollEvery = common.Duration(cfg.Engine.ChordPollEvery, 2*time.Second)

	discoveryCfg := discovery.DefaultConfig()
	pipeline := discovery.New(resolver, probeSet, inv, discoveryCfg)

	sched := scheduler.New(persistence, broker, logger)
	sched.TickInterval = common.Duration(cfg.Scheduler.TickInterval, 30*time.Second)
	sched.StaleAfter = common.Duration(cfg.Scheduler.StaleExecutionAfter, 600*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	worker := &worker{
		broker:      broker,
		persistence: persistence,
		engine:      eng,
		pipeline:    pipeline,
		logger:      logger,
	}
	go worker.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", addr).Msg("control server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("control server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutdown signal received")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("control server shutdown failed")
	}

	logger.Info().Msg("netopscore stopped")
}

// worker drains the broker and runs each task through the Job Engine or
// Discovery Pipeline depending on task_name, completing the task and
// updating its execution row on the way out.
type worker struct {
	broker      *queuebadger.Broker
	persistence interfaces.PersistencePort
	engine      *engine.Engine
	pipeline    *discovery.Pipeline
	logger      arbor.ILogger
}

func (w *worker) run(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *worker) drainOnce(ctx context.Context) {
	taskID, taskName, args, err := w.broker.Receive(ctx)
	if err != nil {
		return
	}

	status := models.ExecutionRunning
	_ = w.persistence.UpdateExecution(ctx, taskID, interfaces.ExecutionPatch{Status: &status})

	var result map[string]interface{}
	var runErr error

	switch taskName {
	case "discovery":
		result, runErr = w.runDiscovery(ctx, args)
	default:
		result, runErr = w.runJob(ctx, args)
	}

	finished := time.Now()
	if runErr != nil {
		failStatus := models.ExecutionFailed
		errMsg := runErr.Error()
		_ = w.persistence.UpdateExecution(ctx, taskID, interfaces.ExecutionPatch{
			Status: &failStatus, FinishedAt: &finished, ErrorMessage: &errMsg,
		})
		_ = w.broker.Complete(ctx, taskID, false, nil, errMsg)
		w.logger.Warn().Str("task_id", taskID).Err(runErr).Msg("task failed")
		return
	}

	successStatus := models.ExecutionSuccess
	_ = w.persistence.UpdateExecution(ctx, taskID, interfaces.ExecutionPatch{
		Status: &successStatus, FinishedAt: &finished, Result: result,
	})
	_ = w.broker.Complete(ctx, taskID, true, result, "")
}

func (w *worker) runJob(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	defID, _ := args["job_definition_id"].(string)
	if defID == "" {
		return nil, fmt.Errorf("task args missing job_definition_id")
	}
	def, err := w.persistence.GetJobDefinition(ctx, defID)
	if err != nil {
		return nil, err
	}

	result := w.engine.Run(ctx, def, models.Map(nil))
	return map[string]interface{}{
		"status":         result.Status,
		"failed_actions": result.FailedActions,
	}, nil
}

func (w *worker) runDiscovery(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	targetSpec := models.Targeting{Kind: models.TargetingStaticList}
	if ips, ok := args["ips"].([]interface{}); ok {
		for _, v := range ips {
			if s, ok := v.(string); ok {
				targetSpec.IPs = append(targetSpec.IPs, s)
			}
		}
	}
	if cidr, ok := args["cidr"].(string); ok && cidr != "" {
		targetSpec = models.Targeting{Kind: models.TargetingNetworkRange, CIDR: cidr}
	}

	report := w.pipeline.Run(ctx, targetSpec)
	return map[string]interface{}{
		"live_count":    len(report.Live),
		"device_count":  len(report.Devices),
		"reconcile":     report.Reconcile.Totals,
		"run_status":    string(report.Run.Status),
	}, nil
}
