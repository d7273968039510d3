//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"finboard/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LedgerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	sheet := os.Getenv("GOOGLE_SHEET_NAME")
	if sheet == "" {
		sheet = "Transactions"
	}

	ctx := context.Background()
	l, err := NewFromEnv(ctx, spreadsheetID, sheet, nil)
	if err != nil {
		t.Skipf("credentials not usable: %v", err)
	}

	id := "integration-" + time.Now().Format("20060102150405")
	tx := core.Transaction{
		ID:     id,
		Title:  "Integration Test",
		Type:   core.Expense,
		Amount: core.NewMoney(1234),
		Date:   time.Now(),
		Status: core.StatusCompleted,
	}

	if err := l.Upsert(ctx, "integration", tx); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	tx.Title = "Integration Test (updated)"
	if err := l.Upsert(ctx, "integration", tx); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	ids, err := l.readIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, v := range ids {
		if v == id {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one row for %s, found %d", id, count)
	}

	if err := l.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
}
