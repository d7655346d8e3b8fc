package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/ridgedb/pkg/core"
	"github.com/cuemby/ridgedb/pkg/replication"
	"github.com/cuemby/ridgedb/pkg/types"
	"github.com/spf13/cobra"
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Back up this core and stream the checkpoint to a follower",
	RunE: func(cmd *cobra.Command, args []string) error {
		mpuID, _ := cmd.Flags().GetString("mpu-id")
		coreID, _ := cmd.Flags().GetString("core-id")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		checkpointKeep, _ := cmd.Flags().GetInt("checkpoint-keep")
		followerAddr, _ := cmd.Flags().GetString("follower-addr")
		followerCoreID, _ := cmd.Flags().GetString("follower-core-id")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		checkReachable, _ := cmd.Flags().GetBool("check-reachable")

		if followerCoreID == "" {
			followerCoreID = coreID
		}

		if checkReachable {
			checker := replication.NewReachabilityChecker(followerAddr)
			result := checker.Check(context.Background())
			if !result.Healthy {
				return fmt.Errorf("follower %s unreachable: %s", followerAddr, result.Message)
			}
		}

		identity := types.CoreIdentity{MpuID: mpuID, CoreID: coreID}
		cfg := types.DefaultConfig(dataDir)
		cfg.CheckpointKeepCount = checkpointKeep

		c, err := core.Open(cfg, identity)
		if err != nil {
			return fmt.Errorf("open core: %w", err)
		}
		defer c.Destroy()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		follower := types.CoreIdentity{
			MpuID:           mpuID,
			CoreID:          followerCoreID,
			NetworkLocation: followerAddr,
		}
		if err := c.TransferTo(ctx, follower); err != nil {
			return fmt.Errorf("transfer_to: %w", err)
		}
		fmt.Printf("transferred %s/%s to %s\n", mpuID, coreID, followerAddr)
		return nil
	},
}

func init() {
	transferCmd.Flags().String("mpu-id", "mpu-1", "Owning MPU identifier")
	transferCmd.Flags().String("core-id", "core-0", "This core's identifier within the MPU")
	transferCmd.Flags().String("data-dir", "./ridgedb-data", "Data directory for this core")
	transferCmd.Flags().Int("checkpoint-keep", 3, "Number of local checkpoints to retain")
	transferCmd.Flags().String("follower-addr", "", "Follower's replication gRPC address (host:port)")
	transferCmd.Flags().String("follower-core-id", "", "Follower core ID, if different from --core-id")
	transferCmd.Flags().Duration("timeout", 5*time.Minute, "Overall transfer timeout")
	transferCmd.Flags().Bool("check-reachable", true, "Probe the follower's TCP port before transferring")
	transferCmd.MarkFlagRequired("follower-addr")
}
