package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"iogtransforms/pkg/config"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
// main calls it with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	verbose    bool
	configPath string
	seed       uint64
}

// load reads the configuration file and applies the --seed override.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	return cfg, nil
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Execute runs the iogtransforms CLI and returns an error if any command fails.
//
// Logging defaults to info level on stderr; --verbose (-v) switches to debug.
//
// Example:
//
//	func main() {
//	    if err := cli.Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute() error {
	return newRootCmd(os.Stderr).ExecuteContext(context.Background())
}

func newRootCmd(logOutput io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "iogtransforms",
		Short:        "iogtransforms prepares samples for Inside-Outside Guidance segmentation",
		Long:         `iogtransforms runs the dataset pipeline of an Inside-Outside Guidance segmentation network: augmentation, cropping around objects or user ROIs, resizing and guidance map synthesis.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(logOutput, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("iogtransforms %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "iog.yaml", "configuration file (.yaml or .toml)")
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", 0, "random seed (overrides the configuration)")

	root.AddCommand(newTrainCmd(opts))
	root.AddCommand(newInferCmd(opts))
	root.AddCommand(newConfigCmd())

	return root
}
