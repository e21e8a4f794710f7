package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/models"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

var (
	fetchDate  string
	fetchQuery string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the simulative database and the students_grade table",
}

var dbCreateCmd = &cobra.Command{
	Use:       "create database|table...",
	Short:     "Create the database and/or the table",
	Example:   "  grades db create database table",
	ValidArgs: []string{"database", "table"},
	Args:      cobra.MatchAll(cobra.MinimumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runDBCreate,
}

var dbDeleteCmd = &cobra.Command{
	Use:       "delete database|table|data...",
	Short:     "Drop the database or the table, or clear the table's rows",
	Example:   "  grades db delete data",
	ValidArgs: []string{"database", "table", "data"},
	Args:      cobra.MatchAll(cobra.MinimumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runDBDelete,
}

var dbFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print sample rows, or a count for --date",
	Args:  cobra.NoArgs,
	RunE:  runDBFetch,
}

func init() {
	dbFetchCmd.Flags().StringVar(&fetchDate, "date", "", "day to count, YYYY-MM-DD (omit for sample rows)")
	dbFetchCmd.Flags().StringVar(&fetchQuery, "query", storage.QueryUniqueUsers.String(),
		"count to run with --date: unique_users, attempts or submits")

	dbCmd.AddCommand(dbCreateCmd, dbDeleteCmd, dbFetchCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBCreate(cmd *cobra.Command, args []string) error {
	return withConn(func(conn *storage.Conn) error {
		schema := storage.NewSchema(conn, cfg.Database.Name, cfg.Database.AdminDB)
		for _, target := range args {
			var err error
			switch target {
			case "database":
				err = schema.CreateDatabase(cmd.Context())
			case "table":
				err = schema.CreateTable(cmd.Context())
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func runDBDelete(cmd *cobra.Command, args []string) error {
	return withConn(func(conn *storage.Conn) error {
		schema := storage.NewSchema(conn, cfg.Database.Name, cfg.Database.AdminDB)
		for _, target := range args {
			var err error
			switch target {
			case "database":
				err = schema.DropDatabase(cmd.Context())
			case "table":
				err = schema.DropTable(cmd.Context())
			case "data":
				if err = conn.UseDatabase(cfg.Database.Name); err == nil {
					err = storage.NewRepository(conn).ClearRecords(cmd.Context())
				}
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func runDBFetch(cmd *cobra.Command, args []string) error {
	var date time.Time
	if fetchDate != "" {
		d, err := parseDate("date", fetchDate)
		if err != nil {
			return err
		}
		date = d
	}
	q, err := storage.ParseQuery(fetchQuery)
	if err != nil {
		return err
	}

	return withConn(func(conn *storage.Conn) error {
		res, err := storage.NewRepository(conn).Fetch(cmd.Context(), q, date)
		if err != nil {
			return err
		}
		if res.Query == storage.QuerySample {
			return printRecords(cmd.OutOrStdout(), res.Rows)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: %d\n", res.Query, fetchDate, res.Count)
		return nil
	})
}

func printRecords(out io.Writer, records []models.AttemptRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tCORRECT\tTYPE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.UserID, intOrNull(r.IsCorrect), stringOrNull(r.AttemptType),
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func intOrNull(v *int) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(*v)
}

func stringOrNull(v *string) string {
	if v == nil {
		return "NULL"
	}
	return *v
}
