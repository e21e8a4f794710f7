package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/report"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

var (
	reportDate    string
	reportTargets []string
	reportEmail   string
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Short:   "Count a day's attempts and deliver them to a sheet and/or by email",
	Example: "  grades report --date 2023-04-05 --to sheet,mail --email me@example.com",
	Args:    cobra.NoArgs,
	RunE:    runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "day to report on, YYYY-MM-DD")
	reportCmd.Flags().StringSliceVar(&reportTargets, "to", nil, "delivery targets: sheet, mail")
	reportCmd.Flags().StringVar(&reportEmail, "email", "", "recipient for mail delivery")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	date, err := parseDate("date", reportDate)
	if err != nil {
		return err
	}
	targets, err := parseTargets(reportTargets)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if t == targetMail {
			if err := report.ValidateAddress(reportEmail); err != nil {
				return fmt.Errorf("--email: %w", err)
			}
		}
	}

	return withConn(func(conn *storage.Conn) error {
		ctx := cmd.Context()
		summary, err := storage.NewRepository(conn).Summary(ctx, date)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Text(summary))

		for _, t := range targets {
			switch t {
			case targetSheet:
				writer, err := report.NewSheetWriter(ctx, cfg.Sheets)
				if err != nil {
					return err
				}
				if err := writer.Write(ctx, summary); err != nil {
					return err
				}
			case targetMail:
				mailer, err := report.NewMailer(cfg.Mail)
				if err != nil {
					return err
				}
				if err := mailer.Send(ctx, reportEmail, report.Subject, report.Text(summary)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
