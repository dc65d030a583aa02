package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
	ports "budget/internal/sheets"
)

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string

	// mu serializes upserts: each one reads column A before choosing a row.
	mu sync.Mutex
}

func newClient(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, summarySheet: sheetName}
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Budget")
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Budget"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(svc, spreadsheetID, sheetName), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteMonthSummary upserts the month's row in the summary sheet: the row
// whose column A holds the month key is overwritten, otherwise a new row is
// appended. The header is written when the sheet is empty.
func (c *Client) WriteMonthSummary(ctx context.Context, key core.MonthKey, summary core.MonthSummary) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("write summary: %w", core.ErrInvalidMonthKey)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.summarySheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}

	if len(resp.Values) == 0 {
		if err := c.updateRow(ctx, 1, summaryHeader); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		resp.Values = [][]any{{summaryHeader[0]}}
	}

	row, found := findRow(resp.Values, key)
	if err := c.updateRow(ctx, row, summaryRow(key, summary)); err != nil {
		return "", err
	}

	ref := rowRange(c.summarySheet, row)
	slog.InfoContext(ctx, "Month summary written to Google Sheets",
		"month", key, "ref", ref, "updated", found)
	return ref, nil
}

func (c *Client) updateRow(ctx context.Context, row int, values []any) error {
	rng := rowRange(c.summarySheet, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}
