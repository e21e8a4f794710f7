package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

// SheetWriter writes the summary into a fixed range of a spreadsheet.
type SheetWriter struct {
	service       *sheets.Service
	spreadsheetID string
	rng           string
}

// NewSheetWriter authenticates with the service-account credentials file
// from cfg. Extra options override the defaults (tests point the client
// at a local endpoint).
func NewSheetWriter(ctx context.Context, cfg config.SheetsConfig, opts ...option.ClientOption) (*SheetWriter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheet delivery requires SPREADSHEET_ID")
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if len(opts) == 0 {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	rng := cfg.Range
	if rng == "" {
		rng = "A1:B3"
	}
	return &SheetWriter{service: srv, spreadsheetID: cfg.SpreadsheetID, rng: rng}, nil
}

// Write replaces the configured range with the summary rows.
func (w *SheetWriter) Write(ctx context.Context, s models.Summary) error {
	resp, err := w.service.Spreadsheets.Values.
		Update(w.spreadsheetID, w.rng, &sheets.ValueRange{Values: Rows(s)}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating spreadsheet %s range %s: %w", w.spreadsheetID, w.rng, err)
	}

	log.Info().Str("range", resp.UpdatedRange).Int64("cells", resp.UpdatedCells).Msg("spreadsheet updated")
	return nil
}
