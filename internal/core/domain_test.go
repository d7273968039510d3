package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTransactionDecodeCategory(t *testing.T) {
	populated := `{
		"_id": "t1",
		"title": "Groceries",
		"amount": 42.1,
		"type": "expense",
		"category": {"_id": "c1", "name": "Food", "type": "expense", "icon": "🍔", "color": "#ff0000"},
		"date": "2024-03-05T00:00:00.000Z",
		"tags": ["weekly"],
		"attachments": [],
		"isRecurring": false,
		"status": "completed"
	}`
	var tx Transaction
	if err := json.Unmarshal([]byte(populated), &tx); err != nil {
		t.Fatalf("unmarshal populated: %v", err)
	}
	if tx.Category.ID != "c1" || tx.Category.Name != "Food" {
		t.Errorf("category = %+v, want c1/Food", tx.Category)
	}
	if tx.Amount.Cents() != 4210 {
		t.Errorf("amount = %d cents, want 4210", tx.Amount.Cents())
	}
	if tx.DateString() != "2024-03-05" {
		t.Errorf("DateString = %s, want 2024-03-05", tx.DateString())
	}
	if tx.Signed().Cents() != -4210 {
		t.Errorf("Signed = %d, want -4210", tx.Signed().Cents())
	}

	bare := `{"_id": "t2", "title": "Salary", "amount": 1000, "type": "income", "category": "c9", "date": "2024-03-01T00:00:00Z", "status": "pending"}`
	var tx2 Transaction
	if err := json.Unmarshal([]byte(bare), &tx2); err != nil {
		t.Fatalf("unmarshal bare: %v", err)
	}
	if tx2.Category.ID != "c9" || tx2.Category.Name != "" {
		t.Errorf("bare category = %+v, want id only", tx2.Category)
	}
	if tx2.Signed().Cents() != 100000 {
		t.Errorf("income Signed = %d, want 100000", tx2.Signed().Cents())
	}
}

func TestParseTxType(t *testing.T) {
	cases := []struct {
		in   string
		want TxType
		err  error
	}{
		{"", "", nil},
		{"income", Income, nil},
		{"expense", Expense, nil},
		{"transfer", "", ErrInvalidType},
	}
	for _, tc := range cases {
		got, err := ParseTxType(tc.in)
		if got != tc.want || !errors.Is(err, tc.err) {
			t.Errorf("ParseTxType(%q) = %q, %v; want %q, %v", tc.in, got, err, tc.want, tc.err)
		}
	}
	if TxType("").Valid() {
		t.Error("empty type should not be valid")
	}
}

func TestSummarySavingsRate(t *testing.T) {
	s := TransactionSummary{
		Income: TypeTotals{Total: NewMoney(200000)},
		Net:    NewMoney(50000),
	}
	if got := s.SavingsRate(); got != 25 {
		t.Errorf("SavingsRate = %v, want 25", got)
	}
	if got := (TransactionSummary{Net: NewMoney(-100)}).SavingsRate(); got != 0 {
		t.Errorf("SavingsRate without income = %v, want 0", got)
	}
}

func TestUserHelpers(t *testing.T) {
	u := User{Name: "Émile", Preferences: Preferences{Theme: ThemeDark}}
	if u.Initial() != "É" {
		t.Errorf("Initial = %q, want É", u.Initial())
	}
	if !u.IsDark() {
		t.Error("IsDark = false, want true")
	}
	if u.DisplayCurrency() != "USD" {
		t.Errorf("DisplayCurrency = %s, want USD", u.DisplayCurrency())
	}
	if (User{}).Initial() != "?" {
		t.Error("empty name should give ?")
	}
}

func TestGroupTrends(t *testing.T) {
	points := []TrendPoint{
		{ID: TrendKey{Year: 2024, Month: 2, Type: Expense}, Total: NewMoney(3000)},
		{ID: TrendKey{Year: 2023, Month: 12, Type: Income}, Total: NewMoney(10000)},
		{ID: TrendKey{Year: 2024, Month: 2, Type: Income}, Total: NewMoney(5000)},
		{ID: TrendKey{Year: 2024, Month: 1, Type: Expense}, Total: NewMoney(700)},
	}

	rows := GroupTrends(points)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Label() != "Dec 2023" || rows[2].Label() != "Feb 2024" {
		t.Errorf("order = %s .. %s, want Dec 2023 .. Feb 2024", rows[0].Label(), rows[2].Label())
	}
	if rows[2].Net().Cents() != 2000 {
		t.Errorf("Feb net = %d, want 2000", rows[2].Net().Cents())
	}

	series := ChartSeries(rows)
	if series[1].Expense != 7 || series[1].Income != 0 {
		t.Errorf("Jan point = %+v", series[1])
	}
}

func TestPeriod(t *testing.T) {
	if ParsePeriod("") != PeriodMonth || ParsePeriod("bogus") != PeriodMonth {
		t.Error("unknown period should default to month")
	}
	if ParsePeriod(" YEAR ") != PeriodYear {
		t.Error("ParsePeriod should normalize case and spaces")
	}

	now := time.Date(2024, time.May, 16, 15, 4, 0, 0, time.UTC) // Thursday
	cases := []struct {
		p          Period
		start, end string
	}{
		{PeriodWeek, "2024-05-13", "2024-05-20"},
		{PeriodMonth, "2024-05-01", "2024-06-01"},
		{PeriodQuarter, "2024-04-01", "2024-07-01"},
		{PeriodYear, "2024-01-01", "2025-01-01"},
	}
	for _, tc := range cases {
		start, end := tc.p.Range(now)
		if start.Format(DateLayout) != tc.start || end.Format(DateLayout) != tc.end {
			t.Errorf("%s range = %s..%s, want %s..%s", tc.p, start.Format(DateLayout), end.Format(DateLayout), tc.start, tc.end)
		}
	}
}

func TestParseDate(t *testing.T) {
	if d, err := ParseDate(""); err != nil || !d.IsZero() {
		t.Errorf("empty date = %v, %v", d, err)
	}
	if _, err := ParseDate("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad month error = %v, want ErrInvalidDate", err)
	}
	if d, err := ParseDate("2024-02-29"); err != nil || d.Day() != 29 {
		t.Errorf("leap day = %v, %v", d, err)
	}
}
