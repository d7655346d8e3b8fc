package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/ridgedb/pkg/core"
	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/cuemby/ridgedb/pkg/replication"
	"github.com/cuemby/ridgedb/pkg/types"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a storage core: replication gRPC server plus health/metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		mpuID, _ := cmd.Flags().GetString("mpu-id")
		coreID, _ := cmd.Flags().GetString("core-id")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		listenAddr, _ := cmd.Flags().GetString("listen")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		ttlSeconds, _ := cmd.Flags().GetInt64("ttl-seconds")
		fastSnapshot, _ := cmd.Flags().GetBool("fast-snapshot")
		checkpointKeep, _ := cmd.Flags().GetInt("checkpoint-keep")
		statsInterval, _ := cmd.Flags().GetInt("stats-interval-seconds")
		startRole, _ := cmd.Flags().GetString("role")

		identity := types.CoreIdentity{
			MpuID:           mpuID,
			CoreID:          coreID,
			Label:           fmt.Sprintf("%s/%s", mpuID, coreID),
			NetworkLocation: listenAddr,
		}

		cfg := types.DefaultConfig(dataDir)
		cfg.TTLSeconds = ttlSeconds
		cfg.FastSnapshot = fastSnapshot
		cfg.CheckpointKeepCount = checkpointKeep
		if statsInterval > 0 {
			cfg.OpenStatisticsCollector = true
			cfg.StatisticsCallbackIntervalSeconds = statsInterval
		}

		logger := log.WithCore("cmd", identity.String())

		c, err := core.Open(cfg, identity)
		if err != nil {
			return fmt.Errorf("open core: %w", err)
		}
		defer c.Destroy()

		roleEvent, err := parseStartRole(startRole)
		if err != nil {
			return err
		}
		if err := c.ApplyRoleEvent(roleEvent); err != nil {
			return fmt.Errorf("apply start role %s: %w", startRole, err)
		}

		lis, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", listenAddr, err)
		}
		grpcServer := grpc.NewServer()
		replication.RegisterServer(grpcServer, replication.NewService(c))

		errCh := make(chan error, 1)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("replication server: %w", err)
			}
		}()
		logger.Info().Str("addr", listenAddr).Msg("replication server listening")

		metrics.SetVersion(Version)
		metrics.RegisterComponent("datastore", true, "ready")
		metrics.RegisterComponent("instructionlog", true, "ready")
		metrics.RegisterComponent("replication", true, "ready")

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("server error, shutting down")
		}

		grpcServer.GracefulStop()
		return nil
	},
}

func parseStartRole(role string) (types.RoleEvent, error) {
	now := time.Now()
	switch role {
	case "primary":
		return types.RoleEvent{Type: types.BecamePrimary, Timestamp: now}, nil
	case "back":
		return types.RoleEvent{Type: types.BecameBack, Timestamp: now}, nil
	case "mirror":
		return types.RoleEvent{Type: types.BecameMirror, Timestamp: now}, nil
	case "idle":
		return types.RoleEvent{Type: types.LostPrimary, Timestamp: now}, nil
	default:
		return types.RoleEvent{}, fmt.Errorf("unknown --role %q (want primary, back, mirror or idle)", role)
	}
}

func init() {
	serveCmd.Flags().String("mpu-id", "mpu-1", "Owning MPU identifier")
	serveCmd.Flags().String("core-id", "core-0", "Core identifier within the MPU")
	serveCmd.Flags().String("data-dir", "./ridgedb-data", "Data directory for this core")
	serveCmd.Flags().String("listen", "127.0.0.1:7443", "Replication gRPC listen address")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Metrics/health HTTP listen address")
	serveCmd.Flags().Int64("ttl-seconds", 0, "TTL in seconds (0 disables TTL mode)")
	serveCmd.Flags().Bool("fast-snapshot", true, "Use hard-link checkpoint mode instead of full-copy backup mode")
	serveCmd.Flags().Int("checkpoint-keep", 3, "Number of local checkpoints to retain")
	serveCmd.Flags().Int("stats-interval-seconds", 0, "Statistics sampler period in seconds (0 disables it)")
	serveCmd.Flags().String("role", "idle", "Starting role: primary, back, mirror or idle")
}
