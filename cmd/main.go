// File: main.go

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"latency-tester/pkg/config"
	"latency-tester/pkg/database"
	"latency-tester/pkg/measurement"
	"latency-tester/pkg/metrics"
	"latency-tester/pkg/report"
	"latency-tester/pkg/server"
)

var (
	debugFlag  bool
	configFile string
	appConfig  *config.AppConfig
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "latency-tester",
	Short: "A tool for measuring and ranking proxy latency",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var measureCmd = &cobra.Command{
	Use:   "measure [file]",
	Short: "Measure the latency of every proxy in a file",
	Long: `Measure ICMP and HTTP latency of proxies and score them.
[file] is either a YAML file with a 'proxies' list or a text file with one
access link (ss://, socks5://, http://, ssconfig://) per line.`,
	Example: "measure proxies.yaml --format json --metrics-file /var/lib/node_exporter/latency.prom",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		store, _ := cmd.Flags().GetBool("store")
		keptOnly, _ := cmd.Flags().GetBool("kept-only")
		resolve, _ := cmd.Flags().GetBool("resolve")

		if format != "text" && format != "json" {
			logger.Error("Invalid format. Must be 'text' or 'json'", "format", format)
			os.Exit(1)
		}

		endpoints, err := server.LoadEndpoints(ctx, args[0])
		if err != nil {
			logger.Error("Error loading endpoints", "error", err)
			os.Exit(1)
		}
		if resolve {
			endpoints = server.Resolve(ctx, endpoints, nil)
		}
		logger.Debug("Endpoints loaded", "file", args[0], "count", len(endpoints))

		done := 0
		progress := func(e measurement.LogEntry) {
			done++
			logger.Debug("Endpoint measured", "endpoint", e.EndpointID, "done", done, "total", len(endpoints), "kept", e.Kept)
		}
		rep := measurement.Measure(ctx, endpoints, appConfig.Latency,
			measurement.WithLogger(logger), measurement.WithOnResult(progress))

		if metricsFile != "" {
			collector := metrics.NewCollector()
			collector.Collect(rep)
			if err := collector.WriteTextfile(metricsFile); err != nil {
				logger.Error("Error writing metrics", "error", err)
				os.Exit(1)
			}
		}

		if store {
			db, err := initDB(ctx)
			if err != nil {
				logger.Error("Error initializing database", "error", err)
				os.Exit(1)
			}
			defer db.Close()

			if err := db.UpsertScores(ctx, rep, endpoints); err != nil {
				logger.Error("Error storing scores", "error", err)
				os.Exit(1)
			}
		}

		if keptOnly {
			rep = report.KeptOnly(rep)
		}
		if err := writeReport(output, format, rep); err != nil {
			logger.Error("Error writing report", "error", err)
			os.Exit(1)
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest stored score of every proxy",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		keptOnly, _ := cmd.Flags().GetBool("kept-only")

		db, err := initDB(ctx)
		if err != nil {
			logger.Error("Error initializing database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		scores, err := db.GetScores(ctx, keptOnly)
		if err != nil {
			logger.Error("Error reading scores", "error", err)
			os.Exit(1)
		}
		if err := report.WriteScores(os.Stdout, scores); err != nil {
			logger.Error("Error writing scores", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: config.yaml in ., $HOME/.latency-tester or /etc/latency-tester)")

	measureCmd.Flags().StringP("format", "f", "text", "Report format: text or json")
	measureCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	measureCmd.Flags().String("metrics-file", "", "Write Prometheus gauges to a textfile")
	measureCmd.Flags().Bool("store", false, "Store the latest scores in the database")
	measureCmd.Flags().Bool("kept-only", false, "Only report proxies that passed the filter")
	measureCmd.Flags().Bool("resolve", false, "Measure every address a proxy hostname resolves to")
	showCmd.Flags().Bool("kept-only", false, "Only show proxies that passed the filter")

	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(showCmd)
}

func initConfig() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		os.Exit(1)
	}
	appConfig = cfg
}

func initDB(ctx context.Context) (*database.DB, error) {
	db, err := database.NewDB(ctx, appConfig.Database)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	err = db.InitSchema(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return db, nil
}

func writeReport(path, format string, rep measurement.Report) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("failed to create report file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if format == "json" {
		return report.WriteJSON(w, rep)
	}
	return report.WriteText(w, rep)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
