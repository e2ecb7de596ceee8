// Package google exports weekly summaries to a Google Sheet, one row per
// week keyed by the week key.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"akunting/internal/core"
	"akunting/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Columns of the summary sheet, in order.
var header = []any{"Minggu", "Periode", "Mulai", "Selesai", "Target", "Pembayaran", "Pengeluaran", "Bersih", "Diperbarui"}

const lastColumn = "I"

type Config struct {
	SpreadsheetID   string
	Sheet           string
	CredentialsJSON string
	CredentialsFile string
}

// Client upserts WeeklySummary rows into one sheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	now           func() time.Time

	// Serializes the lookup and the write of an upsert.
	mu sync.Mutex
}

var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client authenticated with service account
// credentials, given inline or as a file path.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.Sheet) == "" {
		return nil, errors.New("missing sheet name")
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"component", "sheets",
		"sheet", cfg.Sheet)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.Sheet), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		now:           time.Now,
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// WriteSummary writes the summary on the row holding its week key, or on
// the first free row when the week is not in the sheet yet. An empty sheet
// gets a header row first.
func (c *Client) WriteSummary(ctx context.Context, sum core.WeeklySummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read week keys: %w", err)
	}

	keys := resp.Values
	if len(keys) == 0 {
		if err := c.writeRow(ctx, 1, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		keys = [][]any{{header[0]}}
	}

	row := findRow(keys, sum.Period.Key)
	if row == 0 {
		row = len(keys) + 1
	}
	if err := c.writeRow(ctx, row, summaryRow(sum, c.now())); err != nil {
		return fmt.Errorf("write week %s: %w", sum.Period.Key, err)
	}

	slog.DebugContext(ctx, "Weekly summary exported",
		"component", "sheets",
		"week_key", sum.Period.Key,
		"row", row)
	return nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// findRow returns the 1-based row whose first cell equals key, skipping the
// header, or 0.
func findRow(values [][]any, key string) int {
	for i := 1; i < len(values); i++ {
		if len(values[i]) > 0 && strings.TrimSpace(fmt.Sprint(values[i][0])) == key {
			return i + 1
		}
	}
	return 0
}

// summaryRow lays a summary out in header order. Amounts stay integers so
// the sheet can compute with them.
func summaryRow(sum core.WeeklySummary, updated time.Time) []any {
	return []any{
		sum.Period.Key,
		sum.Period.Label,
		sum.Period.StartDate().String(),
		sum.Period.EndDate().String(),
		int64(sum.Expected),
		int64(sum.Payments),
		int64(sum.Expenses),
		int64(sum.Net),
		updated.UTC().Format(time.RFC3339),
	}
}
