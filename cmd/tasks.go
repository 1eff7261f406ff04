package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Outaos/data-steward/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Task folder management",
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create <task-number>",
	Short: "Create the standard folder layout for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")
		year, _ := cmd.Flags().GetInt("year")
		if base == "" {
			base = cfg.Tasks.BaseDir
		}
		if year == 0 {
			year = time.Now().Year()
		}

		subfolders := cfg.Tasks.Subfolders
		if len(subfolders) == 0 {
			subfolders = nil
		}

		path, err := tasks.Scaffold(base, year, args[0], subfolders)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	tasksCreateCmd.Flags().String("base", "", "base directory (default from config)")
	tasksCreateCmd.Flags().Int("year", 0, "task year (default current)")
	tasksCmd.AddCommand(tasksCreateCmd)
	rootCmd.AddCommand(tasksCmd)
}
