package sheets

import (
	"context"

	"finboard/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors transactions into a spreadsheet, one row each.
	// Both operations are idempotent so redelivered events are harmless.
	LedgerWriter interface {
		Upsert(ctx context.Context, userID string, tx core.Transaction) error
		Remove(ctx context.Context, txID string) error
	}
)

// LedgerHeader names the ledger columns A through H.
var LedgerHeader = []string{"ID", "Date", "Title", "Type", "Category", "Amount", "Status", "User"}

// LedgerRow renders a transaction in LedgerHeader order. Expenses are
// negative so a SUM over the Amount column gives the net.
func LedgerRow(userID string, tx core.Transaction) []string {
	return []string{
		tx.ID,
		tx.DateString(),
		tx.Title,
		string(tx.Type),
		tx.Category.Name,
		tx.Signed().Plain(),
		string(tx.Status),
		userID,
	}
}
