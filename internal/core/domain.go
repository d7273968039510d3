package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	StatusCompleted TxStatus = "completed"
	StatusPending   TxStatus = "pending"
	StatusCancelled TxStatus = "cancelled"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	TxType   string
	TxStatus string
	Theme    string

	Notifications struct {
		Email        bool `json:"email"`
		Push         bool `json:"push"`
		WeeklyReport bool `json:"weeklyReport"`
	}

	Preferences struct {
		Theme         Theme         `json:"theme"`
		Notifications Notifications `json:"notifications"`
		BudgetAlerts  bool          `json:"budgetAlerts"`
	}

	User struct {
		ID              string      `json:"_id"`
		Name            string      `json:"name"`
		Email           string      `json:"email"`
		Avatar          string      `json:"avatar,omitempty"`
		Phone           string      `json:"phone,omitempty"`
		Currency        string      `json:"currency"`
		Timezone        string      `json:"timezone"`
		Preferences     Preferences `json:"preferences"`
		IsEmailVerified bool        `json:"isEmailVerified"`
		LastLogin       *time.Time  `json:"lastLogin,omitempty"`
		CreatedAt       time.Time   `json:"createdAt"`
		UpdatedAt       time.Time   `json:"updatedAt"`
	}

	Category struct {
		ID          string    `json:"_id"`
		Name        string    `json:"name"`
		Type        TxType    `json:"type"`
		Icon        string    `json:"icon"`
		Color       string    `json:"color"`
		Description string    `json:"description,omitempty"`
		IsDefault   bool      `json:"isDefault"`
		IsActive    bool      `json:"isActive"`
		User        string    `json:"user,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	Location struct {
		Name        string      `json:"name"`
		Coordinates Coordinates `json:"coordinates"`
	}

	Attachment struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
		Mimetype string `json:"mimetype"`
		Size     int64  `json:"size"`
	}

	RecurringPattern struct {
		Frequency   string     `json:"frequency"` // daily, weekly, monthly, yearly
		Interval    int        `json:"interval"`
		EndDate     *time.Time `json:"endDate,omitempty"`
		NextDueDate *time.Time `json:"nextDueDate,omitempty"`
	}

	Transaction struct {
		ID               string            `json:"_id"`
		Title            string            `json:"title"`
		Description      string            `json:"description,omitempty"`
		Amount           Money             `json:"amount"`
		Type             TxType            `json:"type"`
		Category         CategoryRef       `json:"category"`
		User             string            `json:"user,omitempty"`
		Date             time.Time         `json:"date"`
		Tags             []string          `json:"tags"`
		Location         *Location         `json:"location,omitempty"`
		Attachments      []Attachment      `json:"attachments"`
		IsRecurring      bool              `json:"isRecurring"`
		RecurringPattern *RecurringPattern `json:"recurringPattern,omitempty"`
		Status           TxStatus          `json:"status"`
		Notes            string            `json:"notes,omitempty"`
		CreatedAt        time.Time         `json:"createdAt"`
		UpdatedAt        time.Time         `json:"updatedAt"`
	}

	// CategoryRef is a transaction's category. The backend populates it as a
	// full object on reads but may answer writes with just the id.
	CategoryRef struct {
		Category
	}

	Pagination struct {
		Current int `json:"current"`
		Pages   int `json:"pages"`
		Total   int `json:"total"`
		Limit   int `json:"limit"`
	}

	TypeTotals struct {
		Total   Money `json:"total"`
		Count   int   `json:"count"`
		Average Money `json:"average"`
	}

	TransactionSummary struct {
		Income  TypeTotals `json:"income"`
		Expense TypeTotals `json:"expense"`
		Net     Money      `json:"net"`
	}

	CategoryTotal struct {
		CategoryName  string  `json:"categoryName"`
		CategoryIcon  string  `json:"categoryIcon"`
		CategoryColor string  `json:"categoryColor"`
		CategoryType  TxType  `json:"categoryType"`
		Total         Money   `json:"total"`
		Count         int     `json:"count"`
		Average       Money   `json:"average"`
		Percentage    float64 `json:"percentage"`
	}

	TrendKey struct {
		Year  int    `json:"year"`
		Month int    `json:"month"`
		Day   int    `json:"day,omitempty"`
		Week  int    `json:"week,omitempty"`
		Type  TxType `json:"type"`
	}

	TrendPoint struct {
		ID    TrendKey `json:"_id"`
		Total Money    `json:"total"`
		Count int      `json:"count"`
	}

	PeriodRange struct {
		StartDate time.Time `json:"startDate"`
		EndDate   time.Time `json:"endDate"`
		Type      string    `json:"type"`
	}

	DashboardAnalytics struct {
		Summary           TransactionSummary `json:"summary"`
		CategoryBreakdown []CategoryTotal    `json:"categoryBreakdown"`
		MonthlyTrends     []TrendPoint       `json:"monthlyTrends"`
		TopCategories     []CategoryTotal    `json:"topCategories"`
		Period            PeriodRange        `json:"period"`
	}

	// Change compares one figure with the previous month. Change is a
	// percentage; ChangeType is "increase" or "decrease".
	Change struct {
		Current    Money   `json:"current"`
		Previous   Money   `json:"previous"`
		Change     float64 `json:"change"`
		ChangeType string  `json:"changeType"`
	}

	// Comparison is month over month.
	Comparison struct {
		Income  Change `json:"income"`
		Expense Change `json:"expense"`
		Net     Change `json:"net"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
)

// Valid reports whether t is income or expense.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTxType returns "" for empty input so filters can mean "all".
func ParseTxType(s string) (TxType, error) {
	switch TxType(s) {
	case "":
		return "", nil
	case Income, Expense:
		return TxType(s), nil
	default:
		return "", ErrInvalidType
	}
}

func (s TxStatus) Valid() bool {
	return s == StatusCompleted || s == StatusPending || s == StatusCancelled
}

// UnmarshalJSON accepts a populated category object or a bare id string.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = CategoryRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = CategoryRef{Category{ID: id}}
		return nil
	}
	return json.Unmarshal(data, &c.Category)
}

// Signed returns the amount negated for expenses.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{t.Amount.Neg()}
	}
	return t.Amount
}

// DateString is the YYYY-MM-DD form used by date inputs.
func (t Transaction) DateString() string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.Format(DateLayout)
}

// SavingsRate is net over income in percent, 0 without income.
func (s TransactionSummary) SavingsRate() float64 {
	if !s.Income.Total.IsPositive() {
		return 0
	}
	rate, _ := s.Net.Div(s.Income.Total.Decimal).Shift(2).Round(1).Float64()
	return rate
}

// IsDark reports whether the user prefers the dark theme.
func (u User) IsDark() bool {
	return u.Preferences.Theme == ThemeDark
}

// Initial is the first letter of the name, used when no avatar is set.
func (u User) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}

// DisplayCurrency falls back to USD for profiles without a currency.
func (u User) DisplayCurrency() string {
	if u.Currency == "" {
		return "USD"
	}
	return u.Currency
}

// Increased reports whether the figure went up since the previous month.
func (c Change) Increased() bool {
	if c.ChangeType != "" {
		return c.ChangeType == "increase"
	}
	return c.Change > 0
}
