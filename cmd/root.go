package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dramtune/dramtune/eval"
)

var (
	logLevel     string // log verbosity level
	settingsPath string // YAML settings file locating the simulator

	// Timing parameter flags. A flag left unset means "keep the baseline
	// value"; presence is detected via Changed, not via the default.
	cl   int
	trcd int
	trp  int
	tras int

	workloads []string // workload names or trace file paths
	cycles    int64    // simulated cycles per workload
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "dramtune",
	Short: "Evaluation oracle for DRAM timing configurations",
	Long: "dramtune checks candidate DRAM timing parameters against JEDEC-style " +
		"constraints, drives DRAMsim3 against them, and reduces the simulator's " +
		"output into a single fitness score relative to the baseline configuration.",
}

// evaluateCmd runs the full pipeline: validate, simulate, score.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a timing configuration against the baseline",
	Run: func(cmd *cobra.Command, args []string) {
		setUpLogging()
		settings := loadSettings()

		runner := eval.NewDRAMsim3Runner(
			settings.Simulator.Binary,
			settings.Simulator.Root,
			settings.Evaluation.OutputDir,
		)
		runner.Timeout = settings.Simulator.Timeout()

		evaluator, err := eval.NewEvaluator(eval.EvaluatorConfig{
			BaseConfigPath: settings.Simulator.BaseConfig,
			OutputDir:      settings.Evaluation.OutputDir,
			Weights:        settings.Weights,
			Runner:         runner,
		})
		if err != nil {
			logrus.Fatalf("Failed to initialize evaluator: %v", err)
		}

		params := timingParamsFromFlags(cmd)
		selected := workloads
		if len(selected) == 0 {
			selected = settings.Evaluation.Workloads
		}
		count := cycles
		if count <= 0 {
			count = settings.Evaluation.Cycles
		}

		result := evaluator.Evaluate(params, selected, count)
		printResult(result)
		if !result.Valid {
			os.Exit(1)
		}
	},
}

// validateCmd checks constraints only, without touching the simulator.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a timing configuration against JEDEC-style constraints",
	Run: func(cmd *cobra.Command, args []string) {
		setUpLogging()

		params := timingParamsFromFlags(cmd)
		outcome := eval.Validate(params, validateFallback())
		if outcome.Valid {
			fmt.Printf("valid: %s\n", params)
			return
		}
		fmt.Printf("invalid: %s\n", outcome.Reason)
		os.Exit(1)
	},
}

func setUpLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadSettings() Settings {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		logrus.Fatalf("Failed to load settings: %v", err)
	}
	settings.applyEnvOverrides()
	return settings
}

// timingParamsFromFlags collects only the parameters the user explicitly
// set, so unset parameters fall back to the baseline configuration.
func timingParamsFromFlags(cmd *cobra.Command) eval.TimingParams {
	params := make(eval.TimingParams)
	if cmd.Flags().Changed("cl") {
		params[eval.ParamCL] = cl
	}
	if cmd.Flags().Changed("trcd") {
		params[eval.ParamTRCD] = trcd
	}
	if cmd.Flags().Changed("trp") {
		params[eval.ParamTRP] = trp
	}
	if cmd.Flags().Changed("tras") {
		params[eval.ParamTRAS] = tras
	}
	return params
}

// validateFallback supplies ordering-constraint fallback values for
// parameters the user left unset: the baseline config's timing section when
// available, the DDR4-3200 defaults otherwise.
func validateFallback() eval.TimingParams {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		logrus.Debugf("no settings file, using default fallback values: %v", err)
		return eval.DefaultTimingParams()
	}
	settings.applyEnvOverrides()

	config, err := eval.ParseConfigFile(settings.Simulator.BaseConfig)
	if err != nil {
		logrus.Debugf("base config unreadable, using default fallback values: %v", err)
		return eval.DefaultTimingParams()
	}
	return config.TimingFallback()
}

func printResult(result eval.EvaluationResult) {
	fmt.Println("=== Evaluation Result ===")
	fmt.Printf("Params : %s\n", result.Params)
	fmt.Printf("Valid  : %v\n", result.Valid)
	if !result.Valid {
		fmt.Printf("Error  : %s\n", result.ErrorMessage)
		return
	}
	fmt.Printf("Score  : %.4f\n", result.Score)
	for workload, score := range result.WorkloadScores {
		metrics := result.WorkloadMetrics[workload]
		fmt.Printf("  %-12s score=%.4f latency=%.2f cycles bandwidth=%.2f MB/s energy/access=%.2e\n",
			workload, score, metrics.ReadLatency, metrics.Bandwidth, metrics.EnergyPerAccess)
	}
}

// Execute runs the CLI root command
func Execute() {
	// A local .env may point DRAMTUNE_* variables at the simulator install.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "defaults.yaml", "Path to the settings YAML file")

	for _, cmd := range []*cobra.Command{evaluateCmd, validateCmd} {
		cmd.Flags().IntVar(&cl, "cl", 0, "CAS latency in cycles")
		cmd.Flags().IntVar(&trcd, "trcd", 0, "RAS-to-CAS delay in cycles")
		cmd.Flags().IntVar(&trp, "trp", 0, "Row precharge time in cycles")
		cmd.Flags().IntVar(&tras, "tras", 0, "Row active time in cycles")
	}

	evaluateCmd.Flags().StringSliceVar(&workloads, "workloads", nil, "Workloads to evaluate (random, stream, or trace file paths)")
	evaluateCmd.Flags().Int64Var(&cycles, "cycles", 0, "Simulated cycles per workload")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(validateCmd)
}
