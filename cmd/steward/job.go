package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/steward/pkg/coordinator"
	"github.com/cuemby/steward/pkg/jobs"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Work with job descriptors",
}

var jobRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the stats collector job descriptor as it would be registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, _ := cmd.Flags().GetInt("interval-minutes")
		lock, _ := cmd.Flags().GetInt64("lock-seconds")

		d, err := coordinator.StatsCollectorDescriptor(minutes, lock)
		if err != nil {
			return err
		}
		return printDescriptorJSON(d)
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a registered job descriptor from a stopped node's data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		typeName, _ := cmd.Flags().GetString("type")

		jobType, err := jobs.ParseJobType(typeName)
		if err != nil {
			return err
		}

		store, err := storage.NewBoltStore(dataDir, &storage.BoltOptions{Timeout: time.Second})
		if err != nil {
			return fmt.Errorf("failed to open store (is the node still running?): %w", err)
		}
		defer store.Close()

		doc, err := store.Get(context.Background(), coordinator.JobsIndex, string(jobType))
		if err != nil {
			return err
		}
		d, err := jobs.Parse(doc.Source)
		if err != nil {
			return err
		}
		printDescriptor(d)
		return nil
	},
}

var jobParseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse and validate a job descriptor JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		d, err := jobs.Parse(data)
		if err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return err
		}

		fmt.Printf("✓ %s is a valid job descriptor\n", args[0])
		printDescriptor(d)
		return nil
	},
}

func init() {
	jobCmd.AddCommand(jobRenderCmd)
	jobCmd.AddCommand(jobShowCmd)
	jobCmd.AddCommand(jobParseCmd)

	jobRenderCmd.Flags().Int("interval-minutes", coordinator.DefaultStatsIntervalMinutes, "Stats collector interval in minutes")
	jobRenderCmd.Flags().Int64("lock-seconds", coordinator.DefaultStatsLockDurationSeconds, "Stats collector lock duration in seconds")

	jobShowCmd.Flags().String("data-dir", "./data", "Node data directory")
	jobShowCmd.Flags().String("type", string(jobs.StatsCollector), "Job type")
}

func printDescriptorJSON(d *jobs.Descriptor) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}

func printDescriptor(d *jobs.Descriptor) {
	fmt.Printf("  Name: %s\n", d.Name)
	fmt.Printf("  Type: %s (%s)\n", d.Type, d.Type.Description())
	fmt.Printf("  Enabled: %t\n", d.Enabled)
	if d.Schedule != nil {
		fmt.Printf("  Schedule: %s\n", d.Schedule.Kind())
		fmt.Printf("  Next Run: %s\n", d.Schedule.Next(time.Now()).Format(time.RFC3339))
	}
	if d.LockDurationSeconds != nil {
		fmt.Printf("  Lock Duration: %ds\n", *d.LockDurationSeconds)
	}
	if d.Jitter != nil {
		fmt.Printf("  Jitter: %.2f\n", *d.Jitter)
	}
	fmt.Printf("  Enabled At: %s\n", d.EnabledTime.Format(time.RFC3339))
	fmt.Printf("  Last Update: %s\n", d.LastUpdateTime.Format(time.RFC3339))
}
