package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"climbsplit/pointer"
	"climbsplit/process"
	"climbsplit/profile"
	"climbsplit/sampler"
)

type probeOptions struct {
	dump uint
	maps bool
}

func (a *app) probeCmd() *cobra.Command {
	opts := probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Attach once and show what the profile resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, p, err := a.load()
			if err != nil {
				return err
			}

			proc, err := newOpener().OpenProcessByName(p.ProcessName)
			if err != nil {
				return fmt.Errorf("open %s: %w", p.ProcessName, err)
			}
			defer proc.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s pid %d, profile %s\n", p.ProcessName, proc.GetPID(), p.Name)
			return probe(cmd.OutOrStdout(), proc, p, opts)
		},
	}

	flags := cmd.Flags()
	flags.UintVar(&opts.dump, "dump", 0, "hex dump this many bytes of every resolved object")
	flags.BoolVar(&opts.maps, "maps", false, "list the file-backed regions of the process")
	return cmd
}

// probe resolves every object of the profile once and reports what a tick would see
func probe(w io.Writer, proc process.Process, p *profile.Profile, opts probeOptions) error {
	if opts.maps {
		if err := printMaps(w, proc); err != nil {
			return err
		}
	}

	objects := make(sampler.Objects, len(p.Objects))

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Object", "Status", "Resolution"})

	for _, t := range p.Objects {
		r := pointer.NewResolver(proc, t)
		obj, ok := r.Resolve()
		if !ok {
			tbl.AppendRow(table.Row{t.Name, "unresolved", fmt.Sprintf("%d candidates in %s", len(t.Candidates), t.Module)})
			continue
		}
		objects[t.Name] = obj
		tbl.AppendRow(table.Row{t.Name, "ok", r.Describe(obj)})
	}
	tbl.Render()

	if len(objects) != len(p.Objects) {
		fmt.Fprintln(w, "not every object resolved, a tick would be skipped")
		return nil
	}

	snap, misses := sampler.New(proc, p.Layout).Read(objects)
	fmt.Fprintln(w, "snapshot:", snap)
	if misses > 0 {
		fmt.Fprintf(w, "%d fields unreadable\n", misses)
	}

	matched := "none"
	for _, z := range p.Zones {
		if z.Enter.Matches(snap) {
			matched = z.Name
			break
		}
	}
	fmt.Fprintln(w, "zone:", matched)

	if opts.dump == 0 {
		return nil
	}
	for _, t := range p.Objects {
		obj := objects[t.Name]
		data, err := proc.ReadMemory(obj.Address, process.ProcessMemorySize(opts.dump))
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", obj, err)
			continue
		}
		fmt.Fprintf(w, "%s\n%s", obj, hex.Dump(data))
	}
	return nil
}

// printMaps lists the regions backed by a file, which is where module names for
// profiles and find-chains come from
func printMaps(w io.Writer, proc process.Process) error {
	mm, err := proc.GetMemoryMap()
	if err != nil {
		return fmt.Errorf("memory map: %w", err)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Start", "End", "Perms", "File"})
	for _, item := range mm {
		if item.FileName() == "" {
			continue
		}
		tbl.AppendRow(table.Row{
			process.ProcessMemoryAddress(item.Address).String(),
			process.ProcessMemoryAddress(item.End()).String(),
			item.Perms,
			item.FileName(),
		})
	}
	tbl.Render()
	return nil
}
