package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/database"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

var (
	db         database.DatabaseProvider
	configPath string
	limit      int
)

const timeFormat = "2006-01-02 15:04:05"

func openDB(cmd *cobra.Command, args []string) error {
	logging.SetOutput(os.Stderr, "error")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err = database.Open(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	return nil
}

func closeDB(cmd *cobra.Command, args []string) {
	if db != nil {
		db.Close()
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "honeycomb-cli",
		Short: "Honeycomb CLI - decision database queries",
		Long: `honeycomb-cli reads the decisions, attacker profiles and path hit
counters recorded by a running honeycomb server.`,
		PersistentPreRunE: openDB,
		PersistentPostRun: closeDB,
		SilenceUsage:      true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().IntVarP(&limit, "limit", "n", 50, "maximum rows to show")

	// Decision commands
	decisionCmd := &cobra.Command{
		Use:   "decision",
		Short: "Query recorded decisions",
	}
	decisionCmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List recent decisions", RunE: listDecisions},
		&cobra.Command{Use: "stats", Short: "Decisions by final severity", RunE: decisionStats},
	)

	// Attacker commands
	attackerCmd := &cobra.Command{
		Use:   "attacker",
		Short: "Query attacker profiles",
	}
	attackerCmd.AddCommand(
		&cobra.Command{Use: "list", Short: "List attackers by request count", RunE: listAttackers},
	)

	// Path commands
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Query probed paths",
	}
	pathCmd.AddCommand(
		&cobra.Command{Use: "top", Short: "Most probed paths", RunE: topPaths},
	)

	// Database commands
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database operations",
	}
	dbCmd.AddCommand(
		&cobra.Command{Use: "stats", Short: "Database statistics", RunE: dbStats},
	)

	rootCmd.AddCommand(decisionCmd, attackerCmd, pathCmd, dbCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// ============== DECISION COMMANDS ==============

func listDecisions(cmd *cobra.Command, args []string) error {
	decisions, err := db.GetRecentDecisions(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSOURCE IP\tMETHOD\tPATH\tATTACK TYPE\tRULE\tPOLICY\tFINAL\tSTATUS")

	for _, d := range decisions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			d.Timestamp.Local().Format(timeFormat), d.SourceIP, d.Method, truncate(d.Path, 48),
			d.AttackType, d.RuleSeverity, d.State, d.FinalSeverity, d.StatusCode)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d decisions\n", len(decisions))
	return nil
}

func decisionStats(cmd *cobra.Command, args []string) error {
	counts, err := db.GetSeverityCounts(cmd.Context())
	if err != nil {
		return err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	fmt.Println("\nDecision Statistics")
	fmt.Println("===================")
	for _, s := range detection.Severities {
		n := counts[s.String()]
		pct := 0.0
		if total > 0 {
			pct = float64(n) * 100 / float64(total)
		}
		fmt.Printf("%-10s %8d  (%5.1f%%)\n", s, n, pct)
	}
	fmt.Printf("%-10s %8d\n", "TOTAL", total)
	return nil
}

// ============== ATTACKER COMMANDS ==============

func listAttackers(cmd *cobra.Command, args []string) error {
	profiles, err := db.GetAttackerProfiles(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IP ADDRESS\tREQUESTS\tHIGHEST\tATTACK TYPES\tFIRST SEEN\tLAST SEEN")

	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			p.SourceIP, p.TotalRequests, p.HighestSeverity, truncate(strings.Join(p.AttackTypes, ", "), 48),
			p.FirstSeen.Local().Format(timeFormat), p.LastSeen.Local().Format(timeFormat))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d attackers\n", len(profiles))
	return nil
}

// ============== PATH COMMANDS ==============

func topPaths(cmd *cobra.Command, args []string) error {
	paths, err := db.GetTopPaths(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HITS\tPATH\tLAST SEVERITY\tLAST SEEN")

	for _, p := range paths {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Hits, truncate(p.Path, 64), p.LastSeverity, p.LastSeen.Local().Format(timeFormat))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d paths\n", len(paths))
	return nil
}

// ============== DATABASE COMMANDS ==============

func dbStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	counts, err := db.Counts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf(`
Database Statistics
===================
Decisions:          %d
Attacker Profiles:  %d
Probed Paths:       %d
`, counts.Decisions, counts.Attackers, counts.Paths)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
