package main

import (
	"fmt"

	"github.com/cuemby/ridgedb/pkg/core"
	"github.com/cuemby/ridgedb/pkg/types"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Trigger a local checkpoint of a core's data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		mpuID, _ := cmd.Flags().GetString("mpu-id")
		coreID, _ := cmd.Flags().GetString("core-id")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		checkpointKeep, _ := cmd.Flags().GetInt("checkpoint-keep")

		identity := types.CoreIdentity{MpuID: mpuID, CoreID: coreID}
		cfg := types.DefaultConfig(dataDir)
		cfg.CheckpointKeepCount = checkpointKeep

		c, err := core.Open(cfg, identity)
		if err != nil {
			return fmt.Errorf("open core: %w", err)
		}
		defer c.Destroy()

		if err := c.Backup(); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Printf("checkpoint created for %s/%s\n", mpuID, coreID)
		return nil
	},
}

func init() {
	backupCmd.Flags().String("mpu-id", "mpu-1", "Owning MPU identifier")
	backupCmd.Flags().String("core-id", "core-0", "Core identifier within the MPU")
	backupCmd.Flags().String("data-dir", "./ridgedb-data", "Data directory for this core")
	backupCmd.Flags().Int("checkpoint-keep", 3, "Number of local checkpoints to retain")
}
