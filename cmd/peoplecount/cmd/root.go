package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/peoplecount/internal/config"
	"github.com/MeKo-Tech/peoplecount/internal/version"
)

// cliState carries the configuration shared by one command tree.
type cliState struct {
	cfgFile string
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance, so
// repeated in-process executions do not share flag state.
func NewRootCommand() *cobra.Command {
	st := &cliState{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "peoplecount",
		Short: "Count people in overhead crowd images",
		Long: `Detect and count people in crowd images and score the detections
against annotated ground truth.

Images are turned into binary masks, split into three perspective zones
with their own minimum contour area, and every kept contour becomes a
centroid label. Labels are matched to ground-truth points by greedy
nearest-neighbour search, and precision, recall, F1, accuracy and mean
squared error are reported per image and in aggregate.

Examples:
  peoplecount detect frame.png
  peoplecount evaluate images/ --ground-truth truth.json --format json
  peoplecount match --predicted labels.csv --truth truth.csv
  peoplecount serve --port 8080`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "peoplecount version "+version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&st.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/peoplecount, /etc/peoplecount)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	_ = st.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = st.v.BindPFlag("log_level", pf.Lookup("log-level"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}
		cfg, err := st.load()
		if err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), cfg)
		return nil
	}

	rootCmd.AddCommand(
		newDetectCommand(st),
		newEvaluateCommand(st),
		newMatchCommand(st),
		newServeCommand(st),
		newConfigCommand(st),
	)
	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads configuration once per command tree.
func (st *cliState) load() (*config.Config, error) {
	if st.cfg != nil {
		return st.cfg, nil
	}
	st.loader = config.NewLoaderWithViper(st.v)

	var (
		cfg *config.Config
		err error
	)
	if st.cfgFile != "" {
		cfg, err = st.loader.LoadWithFile(st.cfgFile)
	} else {
		cfg, err = st.loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	st.cfg = cfg
	return cfg, nil
}

// config returns a copy of the loaded configuration for a command to modify.
func (st *cliState) config() (*config.Config, error) {
	cfg, err := st.load()
	if err != nil {
		return nil, err
	}
	cp := *cfg
	cp.Zones.Scales = append([]float64(nil), cfg.Zones.Scales...)
	return &cp, nil
}

// setupLogging installs a JSON slog handler on w. Logs go to stderr so
// command output stays machine readable.
func setupLogging(w io.Writer, cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}
