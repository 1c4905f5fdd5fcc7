// Package cmd implements mkvprobe's command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/limefrogyank/mkvdemux/internal/config"
	"github.com/limefrogyank/mkvdemux/internal/diag"
	"github.com/limefrogyank/mkvdemux/internal/logx"
	"github.com/limefrogyank/mkvdemux/pkg/mkv"
	"github.com/limefrogyank/mkvdemux/pkg/mkverr"
)

var cfgFile string
var maxFrames int
var startSeconds float64

var rootCmd = &cobra.Command{
	Use:   "mkvprobe <file.mkv>",
	Short: "Open a Matroska/WebM file and print its tracks and frame timeline",
	Args:  cobra.ExactArgs(1),
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.RunE = runProbe
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./mkvdemux.yaml, /etc/mkvdemux, $HOME/.mkvdemux)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides config when set")
	rootCmd.Flags().IntVar(&maxFrames, "max-frames", 20, "number of frame descriptors to print before stopping (0 = unlimited)")
	rootCmd.Flags().Float64Var(&startSeconds, "start", -1, "seek to this presentation time (seconds) before streaming; negative plays from the start")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mkvdemux")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/mkvdemux")
		viper.AddConfigPath("$HOME/.mkvdemux")
	}
	viper.SetEnvPrefix("MKVDEMUX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // absence is fine; defaults + env still apply
}

func runProbe(_ *cobra.Command, args []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logx.New(os.Stderr, parseLevel(cfg.Logging.Level))

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	source := mkv.NewFileByteSource(f)

	var monitor mkv.Monitor
	if cfg.Watchdog.Enabled {
		interval, _ := time.ParseDuration(cfg.Watchdog.SampleInterval)
		w, werr := diag.NewWatchdog(cfg.Watchdog.MaxRSSBytes, interval, logger)
		if werr != nil {
			logger.Warn("watchdog disabled", "err", werr.Error())
		} else {
			monitor = w
		}
	}

	ctrl := mkv.NewController(source, cfg.Engine.ReadSizeBytes, cfg.Engine.RingCapacity, logger, monitor)
	defer ctrl.Shutdown()

	ctx := context.Background()
	if err := ctrl.Open(ctx); err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}

	data := ctrl.MasterData()
	fmt.Printf("TimecodeScale: %d ns/tick\n", data.Info.TimecodeScaleNS)
	if data.Info.DurationTicks != nil {
		fmt.Printf("Duration: %.3f ticks\n", *data.Info.DurationTicks)
	}
	for _, t := range data.Tracks {
		fmt.Printf("Track %d: type=%d codec=%s selected=%v\n", t.TrackNumber, t.TrackType, t.CodecID, t.Selected)
	}
	fmt.Printf("Cues: %d entries\n", len(data.Cues))

	startTicks := int64(-1)
	if startSeconds >= 0 {
		startTicks = secondsToTicks(startSeconds, data.Info.TimecodeScaleNS)
	}
	if err := ctrl.Start(ctx, startTicks); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	count := 0
	for maxFrames <= 0 || count < maxFrames {
		fd, ferr := ctrl.NextFrame(ctx)
		if ferr == mkverr.ErrEndOfStream {
			fmt.Println("end of stream")
			break
		}
		if ferr != nil {
			return fmt.Errorf("reading frame: %w", ferr)
		}
		if fd.IsEndOfTrack {
			fmt.Printf("end of track track=%d\n", fd.TrackNumber)
			continue
		}
		fmt.Printf("frame track=%d ts=%d key=%v len=%d\n", fd.TrackNumber, fd.TimestampTicks, fd.IsKeyframe, fd.PayloadLen)
		count++
	}
	return nil
}

func secondsToTicks(seconds float64, scaleNS uint64) int64 {
	if scaleNS == 0 {
		scaleNS = 1_000_000
	}
	return int64(seconds * 1e9 / float64(scaleNS))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
