package memory

import (
	"context"
	"testing"
	"time"

	"finboard/internal/core"
)

func TestLedgerUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	l := New()

	tx := core.Transaction{
		ID:     "t1",
		Title:  "Groceries",
		Type:   core.Expense,
		Amount: core.NewMoney(4250),
		Date:   time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Status: core.StatusCompleted,
	}
	tx.Category.Name = "Food"

	if err := l.Upsert(ctx, "u1", tx); err != nil {
		t.Fatal(err)
	}
	if err := l.Upsert(ctx, "u1", core.Transaction{ID: "t2", Title: "Salary", Type: core.Income, Amount: core.NewMoney(100000)}); err != nil {
		t.Fatal(err)
	}

	rows := l.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := []string{"t1", "2024-05-03", "Groceries", "expense", "Food", "-42.50", "completed", "u1"}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("row[0][%d] = %q, want %q", i, rows[0][i], v)
		}
	}

	tx.Title = "Groceries (market)"
	if err := l.Upsert(ctx, "u1", tx); err != nil {
		t.Fatal(err)
	}
	rows = l.Rows()
	if len(rows) != 2 || rows[0][2] != "Groceries (market)" {
		t.Fatalf("upsert should update in place, got %v", rows)
	}

	if err := l.Remove(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Remove(ctx, "missing"); err != nil {
		t.Fatalf("removing an unknown id should be a no-op: %v", err)
	}
	rows = l.Rows()
	if len(rows) != 1 || rows[0][0] != "t2" {
		t.Fatalf("unexpected rows after remove: %v", rows)
	}
}
