package main

import (
	"fmt"

	"github.com/cuemby/steward/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration files",
}

var configCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		seconds, coerced := cfg.SyncUpInterval()
		fmt.Printf("✓ %s is valid\n", args[0])
		fmt.Printf("  Node ID: %s\n", cfg.NodeID)
		fmt.Printf("  Raft Address: %s\n", cfg.BindAddr)
		fmt.Printf("  Peers: %d\n", len(cfg.Peers))
		fmt.Printf("  Standalone: %t\n", cfg.Standalone)
		if coerced {
			fmt.Printf("  Sync up interval: disabled (%d is outside [0, %d])\n",
				cfg.SyncUpJobIntervalSeconds, config.MaxSyncUpIntervalSeconds)
		} else if seconds == 0 {
			fmt.Println("  Sync up interval: disabled")
		} else {
			fmt.Printf("  Sync up interval: %ds\n", seconds)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}
