package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finch-review/finch/internal/config"
	"github.com/finch-review/finch/internal/db"
	"github.com/finch-review/finch/internal/storage"
)

var (
	outputJSON   bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [owner/repo]",
	Short: "Shows the stored review history for a repository",
	Long: `Shows the most recent reviews Finch has stored for a repository,
including whether each review succeeded and how many retries it needed.

Requires access to the Finch database; connection settings come from the
FINCH_DB_* environment variables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		repoFullName := args[0]

		dbConn, cleanup, err := db.NewDatabase(dbConfigFromEnv())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer cleanup()

		store := storage.NewStore(dbConn.DB)
		reviews, err := store.ListRecentReviews(ctx, repoFullName, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve reviews: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(reviews)
		}

		if len(reviews) == 0 {
			fmt.Printf("No stored reviews for %s.\n", repoFullName)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PR\tHEAD SHA\tOUTCOME\tRETRIES\tDURATION\tCREATED")
		for _, r := range reviews {
			fmt.Fprintf(w, "#%d\t%s\t%s\t%d\t%s\t%s\n",
				r.PRNumber,
				truncateSHA(r.HeadSHA),
				reviewOutcome(r.Success, r.UsedFallback),
				r.RetryCount,
				(time.Duration(r.AnalysisMS) * time.Millisecond).Round(time.Millisecond),
				r.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	historyCmd.Flags().BoolVar(&outputJSON, "json", false, "Output history as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of reviews to show")
	rootCmd.AddCommand(historyCmd)
}

// dbConfigFromEnv builds the database settings from FINCH_DB_* variables,
// with the same defaults the server uses.
func dbConfigFromEnv() *config.DBConfig {
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "finch")
	viper.SetDefault("DB_NAME", "finch")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	return &config.DBConfig{
		Host:            viper.GetString("DB_HOST"),
		Port:            viper.GetInt("DB_PORT"),
		Username:        viper.GetString("DB_USER"),
		Password:        viper.GetString("DB_PASSWORD"),
		Database:        viper.GetString("DB_NAME"),
		ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
	}
}

func reviewOutcome(success, usedFallback bool) string {
	switch {
	case usedFallback:
		return "degraded"
	case success:
		return "success"
	default:
		return "failed"
	}
}
