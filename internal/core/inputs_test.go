package core

import (
	"errors"
	"testing"
)

func validTransaction() TransactionInput {
	return TransactionInput{
		Title:    "Coffee",
		Amount:   NewMoney(350),
		Type:     Expense,
		Category: "c1",
		Date:     "2024-05-01",
	}
}

func TestValidateTransactionInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *TransactionInput)
		field  string
	}{
		{"valid", func(in *TransactionInput) {}, ""},
		{"missing title", func(in *TransactionInput) { in.Title = "" }, "title"},
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, "amount"},
		{"bad type", func(in *TransactionInput) { in.Type = "transfer" }, "type"},
		{"missing category", func(in *TransactionInput) { in.Category = "" }, "category"},
		{"bad date", func(in *TransactionInput) { in.Date = "01/05/2024" }, "date"},
		{"too many tags", func(in *TransactionInput) {
			in.Tags = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validTransaction()
			tt.mutate(&in)
			err := Validate(in)

			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			if _, ok := verrs[tt.field]; !ok {
				t.Errorf("Validate() errors = %v, want entry for %q", verrs, tt.field)
			}
		})
	}
}

func TestValidatePasswordChange(t *testing.T) {
	err := Validate(PasswordChangeInput{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret2"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error = %v, want ValidationErrors", err)
	}
	if verrs["ConfirmPassword"] != "Passwords do not match" {
		t.Errorf("ConfirmPassword message = %q", verrs["ConfirmPassword"])
	}

	if err := Validate(PasswordChangeInput{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret1"}); err != nil {
		t.Errorf("matching passwords: %v", err)
	}
}

func TestValidateCategoryAndProfile(t *testing.T) {
	if err := Validate(CategoryInput{Name: "Rent", Type: Expense, Color: "#3b82f6"}); err != nil {
		t.Errorf("valid category: %v", err)
	}

	err := Validate(CategoryInput{Name: "Rent", Type: Expense, Color: "blue"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs["color"] == "" {
		t.Errorf("bad color error = %v", err)
	}

	if err := Validate(ProfileInput{Name: "Ada", Currency: "EUR", Timezone: "Europe/Paris"}); err != nil {
		t.Errorf("valid profile: %v", err)
	}
	err = Validate(ProfileInput{Name: "Ada", Currency: "XYZ", Timezone: "Mars/Base"})
	if !errors.As(err, &verrs) || verrs["currency"] == "" || verrs["timezone"] == "" {
		t.Errorf("bad profile errors = %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	err := Validate(Credentials{Email: "not-an-email"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error = %v", err)
	}
	if verrs["email"] != "Enter a valid email address" || verrs["password"] != "This field is required" {
		t.Errorf("messages = %v", verrs)
	}
}
