package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Categories offered by the add-transaction form. The server accepts any string.
var Categories = []string{"Food", "Housing", "Transport", "Health", "Education", "Entertainment", "Work", "Other"}

type (
	TransactionType string

	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id,omitempty"`
		Title       string          `json:"title"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description *string         `json:"description,omitempty"`
		Date        Date            `json:"date"`
		CreatedAt   Date            `json:"created_at"`
	}

	TransactionCreate struct {
		Title       string          `json:"title"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description *string         `json:"description,omitempty"`
		Date        Date            `json:"date"`
	}

	// MonthlySummary is computed by the server; the client never aggregates.
	MonthlySummary struct {
		TotalIncome      Money `json:"total_income"`
		TotalExpenses    Money `json:"total_expenses"`
		Balance          Money `json:"balance"`
		TransactionCount int   `json:"transaction_count"`
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyTitle    = errors.New("empty title")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// Sign is the prefix shown next to an amount of this type.
func (t TransactionType) Sign() string {
	if t == Income {
		return "+"
	}
	return "-"
}

// DescriptionText returns the optional description or "".
func (tx Transaction) DescriptionText() string {
	if tx.Description == nil {
		return ""
	}
	return *tx.Description
}

// Date is a calendar date exchanged with the API. The server emits naive ISO
// datetimes, so several layouts are accepted on input.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses any of the layouts the API is known to produce.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ISO returns the date as YYYY-MM-DD, the value format of a date input.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
