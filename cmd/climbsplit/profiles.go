package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"climbsplit/profile"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listProfiles(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a built-in profile as YAML, a starting point for --profile-file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(args[0])
			if err != nil {
				return err
			}
			data, err := p.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}

func listProfiles(w io.Writer) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Name", "Description", "Process", "Objects", "Zones", "Reset"})

	for _, name := range profile.Names() {
		p, err := profile.Load(name)
		if err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		tbl.AppendRow(table.Row{p.Name, p.Description, p.ProcessName, len(p.Objects), len(p.Zones), p.Rules.ResetPolicy})
	}
	tbl.Render()
	return nil
}
