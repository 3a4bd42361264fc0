// Command trafficcore runs the traffic micro-simulation engine: headless
// batch runs, the visualization server, and scenario validation. Built with
// cobra/pflag, mirroring the corpus's CLI idiom.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwmdev/trafficcore/config"
	"github.com/jwmdev/trafficcore/data"
	"github.com/jwmdev/trafficcore/driver"
	"github.com/jwmdev/trafficcore/flowspec"
	"github.com/jwmdev/trafficcore/server"
	"github.com/jwmdev/trafficcore/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trafficcore",
		Short: "Deterministic fixed-timestep traffic micro-simulation engine",
	}
	root.AddCommand(newServeCmd(), newRunCmd(), newValidateCmd())
	return root
}

// openTrafficSpec opens path if non-empty, returning a nil io.Reader
// (not a typed-nil *os.File wrapped in an interface) when there is none.
func openTrafficSpec(path string) (io.Reader, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { f.Close() }, nil
}

func newServeCmd() *cobra.Command {
	var scenarioPath, configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the visualization server against a scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultEngineConfig()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = *loaded
			}

			f, err := os.Open(scenarioPath)
			if err != nil {
				return fmt.Errorf("open scenario: %w", err)
			}
			defer f.Close()
			spec, rm, err := data.LoadScenario(f)
			if err != nil {
				return fmt.Errorf("load scenario: %w", err)
			}

			metrics := telemetry.NewMetrics()
			var trafficSpecFn func() (io.Reader, error)
			if spec.TrafficSpec != "" {
				trafficSpecFn = func() (io.Reader, error) {
					r, _, err := openTrafficSpec(spec.TrafficSpec)
					return r, err
				}
			}
			srv := server.New(server.Options{
				Addr: cfg.ServerAddr, RoadMap: rm, Seed: spec.Seed,
				EndlessTraffic: spec.EndlessTraffic || cfg.EndlessTraffic,
				DefaultSpeed:   cfg.PlaybackSpeed, Metrics: metrics,
				TrafficSpec: trafficSpecFn,
			})
			fmt.Printf("serving on %s\n", cfg.ServerAddr)
			return srv.Serve()
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file")
	cmd.Flags().StringVar(&configPath, "config", "", "path to an operational config YAML file")
	cmd.MarkFlagRequired("scenario")
	return cmd
}

func newRunCmd() *cobra.Command {
	var scenarioPath, reportPath string
	var dt, maxSimTime float64
	var maxTicks int64
	var trace bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario headlessly and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(scenarioPath)
			if err != nil {
				return fmt.Errorf("open scenario: %w", err)
			}
			defer f.Close()
			spec, rm, err := data.LoadScenario(f)
			if err != nil {
				return fmt.Errorf("load scenario: %w", err)
			}

			trafficSpec, closeFn, err := openTrafficSpec(spec.TrafficSpec)
			if err != nil {
				return fmt.Errorf("open traffic spec: %w", err)
			}
			defer closeFn()

			_, err = driver.Run(rm, trafficSpec, driver.Options{
				Seed: spec.Seed, Dt: dt, MaxTicks: maxTicks, MaxSimTime: maxSimTime,
				EndlessTraffic: spec.EndlessTraffic, SourceID: "batch",
				ReportPath: reportPath, Trace: trace, StopWhenEmpty: true,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file")
	cmd.Flags().StringVar(&reportPath, "report", "", "if set, write a CSV report to this file (a timestamp is added to its name) or directory")
	cmd.Flags().Float64Var(&dt, "dt", 0.1, "fixed tick size in seconds")
	cmd.Flags().Float64Var(&maxSimTime, "max-sim-time", 600, "stop after this many simulated seconds (0 = unbounded)")
	cmd.Flags().Int64Var(&maxTicks, "max-ticks", 0, "stop after this many ticks (0 = unbounded)")
	cmd.Flags().BoolVar(&trace, "trace", false, "print per-event trace lines")
	cmd.MarkFlagRequired("scenario")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var scenarioPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse a scenario and its traffic spec without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(scenarioPath)
			if err != nil {
				return fmt.Errorf("open scenario: %w", err)
			}
			defer f.Close()
			spec, _, err := data.LoadScenario(f)
			if err != nil {
				return fmt.Errorf("load scenario: %w", err)
			}
			fmt.Printf("scenario valid: %d roads\n", len(spec.Roads))

			if spec.TrafficSpec != "" {
				tf, err := os.Open(spec.TrafficSpec)
				if err != nil {
					return fmt.Errorf("open traffic spec: %w", err)
				}
				defer tf.Close()
				doc, err := flowspec.Parse(tf)
				if err != nil {
					return fmt.Errorf("traffic spec invalid: %w", err)
				}
				fmt.Printf("traffic spec valid: %d vtypes, %d flows\n", len(doc.VTypes), len(doc.Flows))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file")
	cmd.MarkFlagRequired("scenario")
	return cmd
}
