// Package commands wires the packbeam CLI: one subcommand per problem
// variant, shared flags for input files, budget and output artifacts.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// flags shared by every variant command.
var (
	itemsPath      string
	binsPath       string
	defectsPath    string
	parametersPath string
	outputPath     string
	certificatePath string
	logPath        string

	timeLimitSeconds   float64
	seed               int64
	verbosityLevel     int
	onlyWriteAtTheEnd  bool
	logToStderr        bool
	objectiveToken     string
	optimizationMode   string

	binInfiniteCopies  bool
	binInfiniteX       bool
	binInfiniteY       bool
	itemInfiniteCopies bool
	noItemRotation     bool
	unweighted         bool
)

var rootCmd = &cobra.Command{
	Use:   "packbeam",
	Short: "Cutting and packing solver",
	Long: `Packbeam solves cutting and packing problems: one-dimensional,
rectangle, rectangle-guillotine, box-stacks and irregular variants, under
bin-packing, knapsack, open-dimension and variable-sized objectives.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Input errors exit non-zero with a one-line message.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&itemsPath, "items", "i", "", "Path to the items CSV file")
	flags.StringVarP(&binsPath, "bins", "b", "", "Path to the bins CSV file")
	flags.StringVarP(&defectsPath, "defects", "d", "", "Path to the defects CSV file")
	flags.StringVar(&parametersPath, "parameters", "", "Path to the parameters CSV file")
	flags.StringVarP(&outputPath, "output", "o", "", "Path of the JSON output file")
	flags.StringVarP(&certificatePath, "certificate", "c", "", "Path of the certificate CSV file")
	flags.StringVarP(&logPath, "log", "l", "", "Path of the JSON log file")
	flags.Float64VarP(&timeLimitSeconds, "time-limit", "t", 0, "Time limit in seconds (0 = none)")
	flags.Int64VarP(&seed, "seed", "s", 0, "Random seed")
	flags.IntVarP(&verbosityLevel, "verbosity-level", "v", 1, "Verbosity level")
	flags.BoolVar(&onlyWriteAtTheEnd, "only-write-at-the-end", false, "Write artifacts once at the end only")
	flags.BoolVar(&logToStderr, "log-to-stderr", false, "Log to stderr instead of stdout")
	flags.StringVarP(&objectiveToken, "objective", "f", "", "Objective token (overrides the parameters file)")
	flags.StringVar(&optimizationMode, "optimization-mode", "anytime", "anytime | not-anytime | not-anytime-sequential")

	flags.BoolVar(&binInfiniteCopies, "bin-infinite-copies", false, "Give every bin type infinite copies")
	flags.BoolVar(&binInfiniteX, "bin-infinite-x", false, "Make the bin x dimension practically infinite")
	flags.BoolVar(&binInfiniteY, "bin-infinite-y", false, "Make the bin y dimension practically infinite")
	flags.BoolVar(&itemInfiniteCopies, "item-infinite-copies", false, "Give every item type infinite copies")
	flags.BoolVar(&noItemRotation, "no-item-rotation", false, "Forbid item rotation")
	flags.BoolVar(&unweighted, "unweighted", false, "Ignore item weights")

	rootCmd.AddCommand(onedimensionalCmd)
	rootCmd.AddCommand(rectangleCmd)
	rootCmd.AddCommand(rectangleguillotineCmd)
	rootCmd.AddCommand(boxstacksCmd)
	rootCmd.AddCommand(irregularCmd)
}

// initConfig lets PACKBEAM_* environment variables and an optional config
// file supply defaults for the budget flags.
func initConfig() {
	viper.SetEnvPrefix("packbeam")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetConfigName("packbeam")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	if !rootCmd.PersistentFlags().Changed("time-limit") && viper.IsSet("time-limit") {
		timeLimitSeconds = viper.GetFloat64("time-limit")
	}
	if !rootCmd.PersistentFlags().Changed("verbosity-level") && viper.IsSet("verbosity-level") {
		verbosityLevel = viper.GetInt("verbosity-level")
	}
}

// timeLimit converts the flag into the master budget.
func timeLimit() time.Duration {
	if timeLimitSeconds <= 0 {
		return 0
	}
	return time.Duration(timeLimitSeconds * float64(time.Second))
}

// parseMode translates the mode token.
func parseMode() (packing.OptimizationMode, error) {
	return packing.ParseOptimizationMode(optimizationMode)
}

// parseObjectiveFlag returns the objective override, if any.
func parseObjectiveFlag() (packing.Objective, bool, error) {
	if objectiveToken == "" {
		return packing.ObjectiveDefault, false, nil
	}
	objective, err := packing.ParseObjective(objectiveToken)
	if err != nil {
		return packing.ObjectiveDefault, false, err
	}
	return objective, true, nil
}

// buildLogger builds the run logger: a text handler on stdout or stderr,
// plus a JSON handler into --log when given.
func buildLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbosityLevel <= 0 {
		level = slog.LevelError
	} else if verbosityLevel >= 2 {
		level = slog.LevelDebug
	}

	var sink io.Writer = os.Stdout
	if logToStderr {
		sink = os.Stderr
	}
	handlers := []slog.Handler{slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})}

	cleanup := func() {}
	if logPath != "" {
		file, err := os.Create(logPath)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		cleanup = func() { file.Close() }
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), cleanup, nil
	}
	return slog.New(teeHandler(handlers)), cleanup, nil
}

// teeHandler fans records out to several handlers.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// summaryStyles render the end-of-run box.
var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
	summaryBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1)
	summaryKeyStyle = lipgloss.NewStyle().Faint(true)
)

// renderSummary prints the final aggregates unless the verbosity silences
// them.
func renderSummary(title string, out *packing.JSONOutput) {
	if verbosityLevel <= 0 {
		return
	}
	lines := []string{
		summaryTitleStyle.Render(title),
		fmt.Sprintf("%s %d", summaryKeyStyle.Render("items"), out.NumberOfItems),
		fmt.Sprintf("%s %d", summaryKeyStyle.Render("bins"), out.NumberOfBins),
		fmt.Sprintf("%s %g", summaryKeyStyle.Render("profit"), out.ItemProfit),
		fmt.Sprintf("%s %g", summaryKeyStyle.Render("waste"), out.Waste),
		fmt.Sprintf("%s %.3fs", summaryKeyStyle.Render("time"), out.Time),
	}
	fmt.Println(summaryBoxStyle.Render(strings.Join(lines, "\n")))
}

// emptyCertificate writes the header-only certificate used when the budget
// expires before any solution is found.
func emptyCertificate(path string) error {
	header := []string{"TYPE", "ID", "COPIES", "BIN", "STACK", "X", "Y", "Z", "LX", "LY", "LZ"}
	return packing.WriteCSVFile(path, header, nil)
}
