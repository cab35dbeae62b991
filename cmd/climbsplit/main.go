// Command climbsplit is an autosplitter for A Difficult Game About Climbing. It reads
// the player's state out of the game's memory and drives a LiveSplit timer.
package main

import (
	"fmt"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"climbsplit/config"
	"climbsplit/profile"
	"climbsplit/progress"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// app carries the state shared by every subcommand
type app struct {
	v          *viper.Viper
	configPath string
	log        *logger.Logger
}

func main() {
	a := &app{
		v:   config.New(),
		log: logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.ColorPurple, "climbsplit")),
	}

	rootCmd := &cobra.Command{
		Use:   "climbsplit",
		Short: "Autosplitter for A Difficult Game About Climbing",
		Long: `climbsplit attaches to the running game, follows the player through the level
and sends start, split and reset commands to LiveSplit Server.

Commands:
  run          Wait for the game and split until interrupted
  probe        Attach once and show what the profile resolves
  find-chains  Search the game's memory for pointer chains to a sentinel value
  profiles     List or print the built-in profiles`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default .climbsplit.yaml in . or $HOME)")
	flags.String("profile", config.DefaultProfile, "built-in profile name")
	flags.String("profile-file", "", "load the profile from a YAML file instead")
	flags.String("process", "", "override the profile's process name")
	a.bind("profile", flags.Lookup("profile"))
	a.bind("profile_file", flags.Lookup("profile-file"))
	a.bind("process_name", flags.Lookup("process"))

	rootCmd.AddCommand(a.runCmd())
	rootCmd.AddCommand(a.probeCmd())
	rootCmd.AddCommand(a.findChainsCmd())
	rootCmd.AddCommand(profilesCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// load reads the configuration and the selected profile with overrides applied
func (a *app) load() (*config.Config, *profile.Profile, error) {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return nil, nil, err
	}

	var p *profile.Profile
	if cfg.ProfileFile != "" {
		p, err = profile.LoadFile(cfg.ProfileFile)
	} else {
		p, err = profile.Load(cfg.Profile)
	}
	if err != nil {
		return nil, nil, err
	}

	p, err = p.WithOverrides(cfg.ProcessName, progress.ResetPolicy(cfg.ResetPolicy))
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "climbsplit %s\n", version)
		},
	}
}
