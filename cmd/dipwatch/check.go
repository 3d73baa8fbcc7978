package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/takelwerk/dipwatch/internal/config"
	"github.com/takelwerk/dipwatch/internal/geom"
	"github.com/takelwerk/dipwatch/internal/shift"
	"github.com/takelwerk/dipwatch/internal/track"
)

var (
	checkAt string
	checkX  float64
	checkY  float64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check shift and zone assignments interactively",
	Long:  `Check which shift and report date dipwatch assigns to a timestamp, or which configured zone claims a detection point.`,
}

var checkShiftCmd = &cobra.Command{
	Use:   "shift",
	Short: "Check shift assignment for a timestamp",
	Long:  `Check which shift and which report date dipwatch assigns to a given wall-clock time.`,
	Example: `  dipwatch check shift
  dipwatch check shift --at "2026-03-10 23:30"
  dipwatch check shift --at 00:10`,
	RunE: runCheckShift,
}

var checkPointCmd = &cobra.Command{
	Use:   "point",
	Short: "Check zone containment for a point",
	Long:  `Check which configured zone claims a detection center point, using the zones and glove area from the loaded configuration.`,
	Example: `  dipwatch -c config.yaml check point --x 210 --y 340
  dipwatch check point --x 55.5 --y 80`,
	RunE: runCheckPoint,
}

func init() {
	// Shift check flags
	checkShiftCmd.Flags().StringVar(&checkAt, "at", "", `Timestamp to check (RFC3339, "2006-01-02 15:04", or "15:04") - defaults to now`)

	// Point check flags
	checkPointCmd.Flags().Float64Var(&checkX, "x", 0, "X coordinate of the point (required)")
	checkPointCmd.Flags().Float64Var(&checkY, "y", 0, "Y coordinate of the point (required)")
	checkPointCmd.MarkFlagRequired("x")
	checkPointCmd.MarkFlagRequired("y")

	// Add subcommands
	checkCmd.AddCommand(checkShiftCmd)
	checkCmd.AddCommand(checkPointCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckShift(cmd *cobra.Command, args []string) error {
	at := time.Now()
	if checkAt != "" {
		parsed, err := parseCheckTimestamp(checkAt)
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
		at = parsed
	}

	printShiftResult(at)

	return nil
}

func runCheckPoint(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Resolve the configured geometry the same way the daemon does
	lineCfg, err := buildLineConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build line geometry: %w", err)
	}

	printPointResult(lineCfg, checkX, checkY)

	return nil
}

// printShiftResult prints the shift check result with colors
func printShiftResult(at time.Time) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	s := shift.At(at)
	logDate := shift.LogDate(at)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("SHIFT CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Timestamp:  %s (%s)\n", at.Format("2006-01-02 15:04:05"), at.Weekday())
	fmt.Println()

	cyan.Print("Shift:      ")
	green.Println(s.String())

	cyan.Print("Log date:   ")
	green.Println(logDate.Format("2006-01-02"))

	if logDate.Year() != at.Year() || logDate.YearDay() != at.YearDay() {
		fmt.Println()
		yellow.Println("Note: this timestamp lands on the previous day's report,")
		yellow.Println("overnight work counts toward the day its shift started.")
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

// printPointResult prints the zone containment result with colors
func printPointResult(lineCfg track.LineConfig, x, y float64) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("ZONE CONTAINMENT CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Station:    %s\n", lineCfg.Area)
	fmt.Printf("Point:      (%.1f, %.1f)\n", x, y)
	fmt.Println()

	pt := geom.Point{X: x, Y: y}

	var claimed *track.ZoneDef
	var shadowed []track.ZoneDef
	for i := range lineCfg.Zones {
		zone := lineCfg.Zones[i]
		if !zone.Region.Contains(pt) {
			continue
		}
		if claimed == nil {
			claimed = &lineCfg.Zones[i]
		} else {
			shadowed = append(shadowed, zone)
		}
	}

	cyan.Print("Zone:       ")
	if claimed == nil {
		red.Println("NONE")
		fmt.Println("            → Material at this point is not tracked")
	} else {
		green.Printf("%d (%s)\n", claimed.Number, claimed.Name)
		fmt.Println("            → First matching zone claims the point")
	}

	for _, zone := range shadowed {
		yellow.Printf("            Zone %d (%s) also contains the point but is shadowed\n", zone.Number, zone.Name)
	}

	fmt.Println()
	cyan.Print("Glove area: ")
	if lineCfg.GloveRegion.Contains(pt) {
		green.Println("YES")
		fmt.Printf("            → Gloves here are counted on zone %d once the line goes idle\n", lineCfg.GloveZoneNumber)
	} else {
		fmt.Println("no")
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

// parseCheckTimestamp parses an --at value, accepting RFC3339, a local
// datetime, or a time of day on the current date.
func parseCheckTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			now := time.Now()
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
		}
	}

	return time.Time{}, fmt.Errorf(`timestamp must be RFC3339, "2006-01-02 15:04", or "15:04"`)
}
