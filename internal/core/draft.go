package core

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Draft is the add-transaction form buffer, holding values exactly as typed.
// Only the constraints the form widgets impose are checked; everything else
// is left to the server.
type Draft struct {
	Title       string `validate:"required"`
	Amount      string `validate:"required"`
	Type        string `validate:"required,oneof=income expense"`
	Category    string `validate:"required"`
	Description string
	Date        string `validate:"required,datetime=2006-01-02"`
}

var draftValidator = validator.New()

// DefaultDraft is the state the form starts in and is reset to after a
// successful submission.
func DefaultDraft(now time.Time) Draft {
	return Draft{
		Type:     string(Expense),
		Category: "Food",
		Date:     now.Format("2006-01-02"),
	}
}

// ToCreate converts the draft into an API payload.
func (d Draft) ToCreate() (TransactionCreate, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if err := draftValidator.Struct(d); err != nil {
		return TransactionCreate{}, draftError(err)
	}

	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return TransactionCreate{}, err
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return TransactionCreate{}, err
	}
	typ, err := ParseTransactionType(d.Type)
	if err != nil {
		return TransactionCreate{}, err
	}

	tc := TransactionCreate{
		Title:    d.Title,
		Amount:   amount,
		Type:     typ,
		Category: d.Category,
		Date:     date,
	}
	if d.Description != "" {
		desc := d.Description
		tc.Description = &desc
	}
	return tc, nil
}

// draftError maps the first failing field to a domain error.
func draftError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Title":
		return ErrEmptyTitle
	case "Amount":
		return ErrInvalidAmount
	case "Type":
		return ErrInvalidType
	case "Date":
		return ErrInvalidDate
	default:
		return err
	}
}
