package main

import (
	"github.com/spf13/cobra"

	"github.com/rahul/seif/internal/console"
	"github.com/rahul/seif/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List the commands a plan may use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := skills.Default(cfg.App.Workspace)
		if err != nil {
			return err
		}
		console.PrintSkills(cmd.OutOrStdout(), registry)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}
