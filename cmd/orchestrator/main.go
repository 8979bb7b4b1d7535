package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/eagraf/habitat-workspaces/internal/api"
	"github.com/eagraf/habitat-workspaces/internal/config"
	"github.com/eagraf/habitat-workspaces/internal/deployer/lambda"
	"github.com/eagraf/habitat-workspaces/internal/logging"
	"github.com/eagraf/habitat-workspaces/internal/observability"
	"github.com/eagraf/habitat-workspaces/internal/orchestrator"
	"github.com/eagraf/habitat-workspaces/internal/pubsub"
	"github.com/eagraf/habitat-workspaces/internal/reconciler"
	"github.com/eagraf/habitat-workspaces/internal/spawner"
	"github.com/eagraf/habitat-workspaces/internal/spawner/docker"
	"github.com/eagraf/habitat-workspaces/internal/spawner/ecs"
	"github.com/eagraf/habitat-workspaces/internal/store"
	"github.com/eagraf/habitat-workspaces/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var log = logging.NewLogger()

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}
	logging.SetLevel(cfg.LogLevel())

	err = os.MkdirAll(cfg.Path(), 0o755)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating workspaces directory")
	}
	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Opening database")
	}
	defer db.Close()

	// ctx.Done() returns when SIGINT or SIGTERM is received or cancel() is called.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry, err := newRegistry(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Setting up spawner")
	}
	log.Info().Msgf("Active spawner: %s", registry.Active().Backend())

	hub := pubsub.NewHub()
	publisher := pubsub.NewSimplePublisher[pubsub.StatusEvent](hub, reconciler.NewLastStatusRecorder(db))
	orch := orchestrator.NewOrchestrator(db, registry, publisher)

	queue := tasks.NewQueue(orch, tasks.Options{
		Workers:     cfg.WorkerCount(),
		MaxAttempts: cfg.TaskMaxAttempts(),
		Permanent:   orchestrator.IsPermanent,
		Retention:   cfg.TaskRetention(),
	})

	reg := prometheus.NewRegistry()
	observability.RegisterAll(reg)

	routes := []api.Route{
		api.NewVersionHandler(),
		api.NewMetricsRoute(reg),
		api.NewCreateWorkspaceRoute(orch),
		api.NewGetWorkspaceRoute(orch),
		api.NewDeleteWorkspaceRoute(orch),
		api.NewWorkspaceActionRoute(orch, queue),
		api.NewAutogradeRoute(orch, queue),
		api.NewStatusRoute(orch),
		api.NewListWorkspacesRoute(orch),
		api.NewRunStatisticsRoute(orch),
		api.NewHistoryRoute(orch),
		api.NewStreamRoute(orch, hub),
		api.NewGetTaskRoute(queue),
		api.NewCreateDeploymentRoute(orch),
		api.NewGetDeploymentRoute(orch),
		api.NewDeployRoute(orch, queue),
		api.NewDeleteDeploymentRoute(orch, queue),
		reconciler.NewSNSRoute(reconciler.NewReconciler(db, publisher, &http.Client{Timeout: 10 * time.Second})),
	}
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.APIPort()),
		Handler: api.NewRouter(routes, log),
	}

	// egCtx is cancelled if any function called with eg.Go() returns an error.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return queue.Run(egCtx)
	})
	eg.Go(serveFn(apiServer, "api-server"))

	// Wait for an interrupt or for one of the services to fail.
	select {
	case <-egCtx.Done():
		log.Err(fmt.Errorf("sub-service errored: shutting down %v", egCtx.Err())).Send()
		cancel()
	case <-ctx.Done():
		log.Info().Msg("Interrupt signal received; shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	err = apiServer.Shutdown(shutdownCtx)
	if err != nil {
		log.Err(fmt.Errorf("error on api-server shutdown: %v", err)).Send()
	}

	err = eg.Wait()
	if err != nil {
		log.Err(fmt.Errorf("received error on eg.Wait(): %v", err)).Send()
	}
}

func serveFn(srv *http.Server, name string) func() error {
	return func() error {
		log.Info().Msgf("Starting %s on %s", name, srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// newRegistry constructs the configured spawner backend, plus the Lambda
// deployer when a role for it is configured.
func newRegistry(ctx context.Context, cfg *config.Config, db *store.Store) (*spawner.Registry, error) {
	command := spawner.CommandOptions{
		APIVersion:    cfg.APIVersion(),
		SigningSecret: cfg.SigningSecret(),
		SiteRoot:      cfg.SiteRoot(),
	}

	spawners := []spawner.Spawner{spawner.NewDummySpawner()}
	var awsConfig *aws.Config

	switch backend := spawner.Backend(cfg.Spawner()); backend {
	case spawner.BackendDummy:
	case spawner.BackendDocker:
		client, err := docker.NewClient(cfg.DockerHost())
		if err != nil {
			return nil, fmt.Errorf("connecting to docker: %w", err)
		}
		spawners = append(spawners, docker.NewSpawner(client, db, db, docker.Options{
			Command:     command,
			VolumeRoot:  cfg.VolumeRoot(),
			SSHKeyRoot:  cfg.SSHKeyRoot(),
			Swarm:       cfg.DockerSwarm(),
			Network:     cfg.DockerNetwork(),
			StopTimeout: cfg.DockerStopTimeout(),
			NvidiaURL:   cfg.NvidiaURL(),
			Traefik:     cfg.Traefik(),
		}))
	case spawner.BackendECS:
		client, awsCfg, err := ecs.NewClient(ctx, cfg.AWSRegion())
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		awsConfig = &awsCfg
		spawners = append(spawners, ecs.NewSpawner(client, db, ecs.Options{
			Command:       command,
			Cluster:       cfg.ECSCluster(),
			Region:        cfg.AWSRegion(),
			LogGroup:      cfg.ECSLogGroup(),
			VolumeRoot:    cfg.VolumeRoot(),
			SSHKeyRoot:    cfg.SSHKeyRoot(),
			Devices:       cfg.ECSDevices(),
			CallTimeout:   cfg.AWSCallTimeout(),
			AutogradeWait: cfg.AutogradeWait(),
		}))
	default:
		return nil, fmt.Errorf("%w: %s", spawner.ErrBackendNotFound, backend)
	}

	registry, err := spawner.NewRegistry(spawner.Backend(cfg.Spawner()), spawners...)
	if err != nil {
		return nil, err
	}

	if cfg.LambdaRole() == "" {
		return registry, nil
	}
	if awsConfig == nil {
		_, awsCfg, err := ecs.NewClient(ctx, cfg.AWSRegion())
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		awsConfig = &awsCfg
	}
	lambdaClient, gatewayClient := lambda.NewClients(*awsConfig)
	registry.WithDeployer(lambda.NewDeployer(lambdaClient, gatewayClient, db, db, lambda.Options{
		Region:             cfg.AWSRegion(),
		Role:               cfg.LambdaRole(),
		Runtime:            cfg.LambdaRuntime(),
		Handler:            cfg.LambdaHandler(),
		Stage:              cfg.GatewayStage(),
		AuthorizerFunction: cfg.AuthorizerName(),
		FrameworkURL:       cfg.FrameworkURL(),
		VolumeRoot:         cfg.VolumeRoot(),
		CallTimeout:        cfg.AWSCallTimeout(),
	}))
	return registry, nil
}

var (
	_ orchestrator.Store  = &store.Store{}
	_ lambda.GatewayStore = &store.Store{}
)
