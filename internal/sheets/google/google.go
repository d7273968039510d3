package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"finboard/internal/core"
	applog "finboard/internal/log"
	ports "finboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ledger writes transaction rows to one sheet of a spreadsheet. Rows are
// located by the transaction ID in column A.
type Ledger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger

	// serializes read-modify-write cycles against the sheet
	mu      sync.Mutex
	sheetID *int64
}

var _ ports.LedgerWriter = (*Ledger)(nil)

// New builds a ledger on top of a Sheets service created with opts.
func New(ctx context.Context, spreadsheetID, sheet string, logger *applog.Logger, opts ...goption.ClientOption) (*Ledger, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = "Transactions"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Ledger{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}, nil
}

// NewFromEnv creates a ledger authenticated with a service account.
func NewFromEnv(ctx context.Context, spreadsheetID, sheet string, logger *applog.Logger) (*Ledger, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, sheet, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// serviceAccountCredentials reads GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Upsert overwrites the transaction's row, appending it (and the header on
// an empty sheet) when missing.
func (l *Ledger) Upsert(ctx context.Context, userID string, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.readIDs(ctx)
	if err != nil {
		return err
	}

	values := [][]any{toCells(ports.LedgerRow(userID, tx))}
	row := indexOf(ids, tx.ID) + 1
	if row == 0 {
		row = len(ids) + 1
		if len(ids) == 0 {
			values = append([][]any{toCells(ports.LedgerHeader)}, values...)
		}
	}

	rng := fmt.Sprintf("%s!A%d:H%d", l.sheet, row, row+len(values)-1)
	_, err = l.svc.Spreadsheets.Values.Update(l.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}

	l.logger.DebugContext(ctx, "Mirrored transaction",
		applog.FieldTransactionID, tx.ID,
		applog.FieldUserID, userID,
		"range", rng)
	return nil
}

// Remove deletes the transaction's row. Missing rows are not an error.
func (l *Ledger) Remove(ctx context.Context, txID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.readIDs(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(ids, txID)
	if idx < 0 {
		l.logger.DebugContext(ctx, "Transaction not in ledger, nothing to remove", applog.FieldTransactionID, txID)
		return nil
	}

	sheetID, err := l.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", idx+1, l.sheet, err)
	}
	return nil
}

func (l *Ledger) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", l.sheet)
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// resolveSheetID looks up the numeric id of the sheet tab once.
func (l *Ledger) resolveSheetID(ctx context.Context) (int64, error) {
	if l.sheetID != nil {
		return *l.sheetID, nil
	}
	ss, err := l.svc.Spreadsheets.Get(l.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == l.sheet {
			id := s.Properties.SheetId
			l.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", l.sheet)
}

func toCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
