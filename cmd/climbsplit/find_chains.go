package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"climbsplit/pointer"
	"climbsplit/process"
	"climbsplit/search"
)

type findOptions struct {
	module   string
	value    string
	kind     string
	depth    int
	rootSize uint
	size     uint
	align    uint
	limit    int
}

func (a *app) findChainsCmd() *cobra.Command {
	opts := findOptions{}

	cmd := &cobra.Command{
		Use:   "find-chains",
		Short: "Search the game's memory for pointer chains to a sentinel value",
		Long: `find-chains walks pointers out of a module image looking for a sentinel such
as the -0.5 that marks the position object. Matching chains are printed as
candidates ready to paste into a profile.`,
		Args: cobra.NoArgs,
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

			return findChains(cmd.Context(), cmd.OutOrStdout(), proc, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.module, "module", "UnityPlayer.dll", "module whose image is the root of every chain")
	flags.StringVar(&opts.value, "value", "-0.5", "sentinel to look for")
	flags.StringVar(&opts.kind, "kind", string(process.KindFLOAT32), "sentinel kind (u8..u64, i8..i64, f32, f64)")
	flags.IntVar(&opts.depth, "depth", 3, "maximum pointer dereferences")
	flags.UintVar(&opts.rootSize, "root-size", 0x2000000, "bytes of the module image to scan")
	flags.UintVar(&opts.size, "range", 0x400, "bytes scanned in every object past the root")
	flags.UintVar(&opts.align, "align", 4, "alignment of candidate fields")
	flags.IntVar(&opts.limit, "limit", 64, "stop after this many chains, 0 for no limit")

	return cmd
}

func (o findOptions) sentinel() (process.Value, error) {
	return process.ParseValue(process.ValueKind(o.kind), process.Number(o.value))
}

// findChains prints the chains from the module base to the sentinel as profile
// candidates. Hits inside the module image itself are not chains and are left out.
func findChains(ctx context.Context, w io.Writer, target search.Target, o findOptions) error {
	want, err := o.sentinel()
	if err != nil {
		return err
	}

	base, err := target.ModuleBaseAddress(o.module)
	if err != nil {
		return fmt.Errorf("module %s: %w", o.module, err)
	}

	results, err := search.Search(ctx, target, base,
		search.WithValue(want),
		search.WithMaxDepth(o.depth),
		search.WithRootSize(o.rootSize),
		search.WithMaxStructSize(o.size),
		search.WithMinAlignment(o.align),
		search.WithMaxResults(o.limit),
	)
	if err != nil {
		return err
	}

	var candidates []pointer.Candidate
	for _, r := range results {
		if len(r.Path) < 2 {
			continue
		}
		candidates = append(candidates, pointer.Candidate{
			Chain: r.Chain(),
			Check: &pointer.Check{
				Path:   []process.ProcessMemorySize{r.Field()},
				Kind:   want.Kind,
				Equals: process.Number(o.value),
			},
		})
	}

	if len(candidates) == 0 {
		fmt.Fprintf(w, "# no chains to %s %s below %s\n", o.kind, o.value, o.module)
		return nil
	}

	fmt.Fprintf(w, "# %d chains to %s %s below %s\n", len(candidates), o.kind, o.value, o.module)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(candidates); err != nil {
		return err
	}
	return enc.Close()
}
