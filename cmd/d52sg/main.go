package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonogibbs/d52sg/internal/checker"
	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/excel"
	"github.com/jonogibbs/d52sg/internal/export"
	"github.com/jonogibbs/d52sg/internal/schedule"
	"github.com/jonogibbs/d52sg/internal/stats"
)

const defaultConfigFile = "config.yaml"

var (
	verbose bool
	logger  = zap.NewNop()
)

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "d52sg",
		Short: "D52 Juniors 54/80 interleague schedule generator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and verify schedules",
	}

	var configFile string
	scheduleCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")

	var (
		seed       int64
		outputDir  string
		trimPolicy string
	)
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate a schedule from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = rand.Int63()
			}
			return runGenerate(configPath, seed, outputDir, trimPolicy)
		},
	}
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed; the same seed and config reproduce the schedule exactly")
	generateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output", "Directory for the generated schedule files")
	generateCmd.Flags().StringVar(&trimPolicy, "trim-policy", string(schedule.TrimLatestDate), "Which surplus game to drop first: latest-date or newest-added")

	verifyCmd := &cobra.Command{
		Use:          "verify <schedule.xlsx|gamechanger.csv>",
		Short:        "Verify a schedule against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runVerify(configPath, args[0])
		},
	}

	scheduleCmd.AddCommand(generateCmd, verifyCmd)
	rootCmd.AddCommand(initCmd, scheduleCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger() error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger = l
	return nil
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

func runGenerate(configPath string, seed int64, outputDir, trimPolicy string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	policy, err := schedule.ParseTrimPolicy(trimPolicy)
	if err != nil {
		return err
	}

	result, err := schedule.Generate(cfg, schedule.Options{
		Seed:       seed,
		TrimPolicy: policy,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	report, err := checker.Check(cfg, result.Games)
	if err != nil {
		return err
	}
	summary := stats.Compute(cfg, result.Games, result.Unscheduled)

	if err := writeOutputs(cfg, result, report, summary, outputDir); err != nil {
		return err
	}

	fmt.Printf("✓ Scheduled %d games (seed %d, run %s)\n", len(result.Games), result.Seed, result.RunID)
	if len(result.Trimmed) > 0 {
		fmt.Printf("⚠ Trimmed %d games to restore balance\n", len(result.Trimmed))
	}
	for _, u := range result.Unscheduled {
		fmt.Fprintf(os.Stderr, "⚠ Unscheduled: %s (%s round %d): %s\n", u.Matchup, u.Kind, u.Round, u.Reason)
	}
	printReport(report)
	fmt.Printf("\n✓ Schedule saved to %s\n", outputDir)

	if !report.Valid() {
		return fmt.Errorf("schedule has %d rule violations", len(report.Errors()))
	}
	return nil
}

func writeOutputs(cfg *config.Config, result *schedule.Result, report *checker.Report, summary *stats.Stats, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	workbook, err := excel.Generate(cfg, result)
	if err != nil {
		return err
	}
	if err := workbook.SaveAs(filepath.Join(outputDir, "schedule.xlsx")); err != nil {
		return fmt.Errorf("writing schedule.xlsx: %w", err)
	}

	if err := writeFile(filepath.Join(outputDir, "schedule.txt"), func(f *os.File) error {
		return export.WriteText(f, cfg, result.Games)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outputDir, "gamechanger.csv"), func(f *os.File) error {
		return export.WriteGameChanger(f, cfg, result.Games)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(outputDir, "stats.txt"), func(f *os.File) error {
		if _, err := f.WriteString(summary.Render()); err != nil {
			return err
		}
		_, err := f.WriteString("\n\n" + formatReport(report) + "\n")
		return err
	})
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func runVerify(configPath, schedulePath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	var games []schedule.Game
	switch ext := strings.ToLower(filepath.Ext(schedulePath)); ext {
	case ".xlsx":
		games, err = excel.ReadGames(schedulePath, cfg)
	case ".csv":
		var f *os.File
		f, err = os.Open(schedulePath)
		if err != nil {
			return err
		}
		defer f.Close()
		games, err = export.ReadGameChanger(f, cfg)
	default:
		return fmt.Errorf("unsupported schedule format %q: want .xlsx or .csv", ext)
	}
	if err != nil {
		return err
	}

	report, err := checker.Check(cfg, games)
	if err != nil {
		return err
	}
	printReport(report)
	fmt.Println("\n" + stats.Compute(cfg, games, nil).Render())
	fmt.Printf("\nVerification complete: %d games, %d rule violations, %d warnings\n",
		len(games), len(report.Errors()), len(report.Warnings()))

	if !report.Valid() {
		return fmt.Errorf("schedule has %d rule violations", len(report.Errors()))
	}
	return nil
}

func printReport(report *checker.Report) {
	for _, v := range report.Errors() {
		fmt.Printf("✗ Rule violation: %s\n", v.Message)
	}
	for _, v := range report.Warnings() {
		fmt.Printf("⚠ %s\n", v.Message)
	}
	if report.Valid() && len(report.Warnings()) == 0 {
		fmt.Println("✓ No rule violations")
	}
}

func formatReport(report *checker.Report) string {
	var b strings.Builder
	b.WriteString("--- RULE CHECK ---\n")
	if len(report.Violations) == 0 {
		b.WriteString("clean\n")
		return b.String()
	}
	for _, v := range report.Violations {
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", v.Severity, v.Kind, v.Message))
	}
	return b.String()
}

const configTemplate = `# D52 Juniors 54/80 Season Configuration
# ======================================
# This file defines the leagues, pools, fields and season window used to
# generate the interleague schedule.

# Season bounds and game-wide defaults.
season:
  name: "D52 Juniors 54/80"
  start_date: "2026-04-06"
  end_date: "2026-05-31"
  game_length_minutes: 150
  game_code_prefix: "G"

# The two scheduling pools. Teams play everyone in their own pool on
# weekdays and every team of the other pool on weekends.
pools:
  north:
    - LYN1
    - LYN2
    - PEA1
    - SAU1
  south:
    - BRS1
    - BRS2
    - DAN1
    - MID1

# Leagues own teams, fields and blackout dates. "teams" is either a count
# (codes are generated from the league code: 2 gives LYN1, LYN2) or an
# explicit list of codes.
leagues:
  LYN:
    full_name: "Lynn Babe Ruth"
    teams: 2
    weekday_fields:
      - field: "Fraser Field"
        day: tue
        time: "5:45pm"
    weekend_fields:
      - field: "Fraser Field"
        day: sat
        time: "10:00am"
    blackout_dates:
      - "2026-04-20:2026-04-24"   # spring break
  PEA:
    full_name: "Peabody West"
    teams: 1
    weekday_fields:
      - field: "Cy Tenney Park"
        day: wed
        time: "5:30pm"
    weekend_fields:
      - field: "Cy Tenney Park"
        day: sun
        time: "1:00pm"
  SAU:
    full_name: "Saugus American"
    teams: 1
    weekday_fields:
      - field: "World Series Park"
        day: thu
        time: "6:00pm"
        exclude_dates:
          - "2026-05-14"          # town event
  BRS:
    full_name: "Boxford Rowley Salem"
    teams: 2
    weekday_fields:
      - field: "Palmer Field"
        day: mon
        time: "5:45pm"
      - field: "Palmer Field"
        day: thu
        time: "5:45pm"
    weekend_fields:
      - field: "Palmer Field"
        day: sat
        time: "9:00am"
      - field: "Palmer Field"
        day: sat
        time: "12:00pm"
  DAN:
    full_name: "Danvers National"
    teams: 1
    weekday_fields:
      - field: "Tapley Park"
        day: tue
        time: "5:30pm"
    weekend_fields:
      - field: "Tapley Park"
        day: sun
        time: "10:00am"
  MID:
    full_name: "Middleton"
    teams: 1
    weekday_fields:
      - field: "Howe-Manning Field"
        day: wed
        time: "5:45pm"
    weekend_fields:
      - field: "Howe-Manning Field"
        day: sat
        time: "11:00am"

# Per-team exceptions layered on top of league defaults.
team_overrides:
  SAU1:
    weekday_only: true            # no weekend games...
    available_weekends:           # ...except these dates
      - "2026-05-16"
    gamechanger_name: "Saugus American 54-80"
  MID1:
    no_play_days: [fri]

# Teams that share a coach: keep their games off simultaneous start times.
avoid_same_time_groups:
  - [BRS1, BRS2]

# Map links shown on the master schedule sheet.
fields:
  "Fraser Field":
    map_url: "https://maps.google.com/?q=Fraser+Field+Lynn+MA"
  "Palmer Field":
    map_url: "https://maps.google.com/?q=Palmer+Field+Salem+MA"
`
