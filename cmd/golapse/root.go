package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/GoLapse/internal/config"
	"github.com/cjeanneret/GoLapse/internal/console"
	"github.com/cjeanneret/GoLapse/internal/geo"
	"github.com/cjeanneret/GoLapse/internal/hw/camera"
	"github.com/cjeanneret/GoLapse/internal/logic/capture"
	"github.com/cjeanneret/GoLapse/internal/logic/window"
)

// deps are the process-level collaborators of a run, swapped in tests.
type deps struct {
	in          io.Reader
	out         io.Writer
	interactive func() bool
	now         func() time.Time
	time        capture.TimeSource
	openDevice  func(ctx context.Context, cfg *config.Config) (camera.Device, error)
	openLocator func(cfg *config.Config) (window.Locator, error)
}

func systemDeps() deps {
	return deps{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: func() bool { return console.IsInteractive(os.Stdin) },
		now:         time.Now,
		time:        capture.SystemTime{},
		openDevice:  camera.Open,
		openLocator: func(cfg *config.Config) (window.Locator, error) {
			return geo.NewDatabase(cfg.Places.ExtraFile)
		},
	}
}

// options are the flags of the root command.
type options struct {
	cfgPath      string
	intervalMins int
	startHour    int
	endHour      int
	startOffset  int
	endOffset    int
	imgSizeMB    float64
	yes          bool
	outputDir    string
	web          webPortFlag

	startHourSet bool
	endHourSet   bool
	imgSizeSet   bool
}

func newRootCmd(d deps) *cobra.Command {
	opts := &options{web: webPortFlag{defaultPort: 8080}}

	rootCmd := &cobra.Command{
		Use:   "golapse <delay-minutes>",
		Short: "Capture an overnight DSLR time lapse",
		Long: "Capture one photo every <delay-minutes> between a start and an end hour.\n" +
			"Hours not given on the command line are derived from sunset and sunrise\n" +
			"at a location asked interactively.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("delay must be a whole number of minutes, got %q", args[0])
			}
			opts.intervalMins = interval
			opts.startHourSet = cmd.Flags().Changed("start-time")
			opts.endHourSet = cmd.Flags().Changed("end-time")
			opts.imgSizeSet = cmd.Flags().Changed("img-size")
			return runSession(cmd.Context(), d, opts)
		},
	}
	rootCmd.SetIn(d.in)
	rootCmd.SetOut(d.out)

	f := rootCmd.Flags()
	f.IntVarP(&opts.startHour, "start-time", "s", 0, "start hour (0-23); derived from sunset when omitted")
	f.IntVarP(&opts.endHour, "end-time", "e", 0, "end hour (0-23); derived from sunrise when omitted")
	f.IntVarP(&opts.startOffset, "offset", "o", 0, "minutes after the start hour (recorded, not applied)")
	f.IntVarP(&opts.endOffset, "reverse-offset", "r", 0, "minutes before the end hour (recorded, not applied)")
	f.Float64VarP(&opts.imgSizeMB, "img-size", "i", 0, "expected size of one capture in MB (default from config, 10)")
	f.BoolVarP(&opts.yes, "yes", "y", false, "skip the estimate confirmation")
	f.StringVar(&opts.outputDir, "output-dir", "", "root directory for the session directory (default from config)")
	f.Var(&opts.web, "web", "serve session status on port; --web for default 8080, --web=8980 for custom port")
	f.Lookup("web").NoOptDefVal = strconv.Itoa(opts.web.defaultPort)

	rootCmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", config.DefaultConfigPath(), "path to config file")

	rootCmd.AddCommand(newSessionsCmd(d, opts))
	return rootCmd
}
