package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-01", "2025-03-01", true},
		{"2025-03-01T00:00:00", "2025-03-01", true},
		{"2025-03-01T10:11:12.123456", "2025-03-01", true},
		{"2025-03-01T00:00:00Z", "2025-03-01", true},
		{"2025-03-01T23:00:00+02:00", "2025-03-01", true},
		{"01/03/2025", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.ISO() != tc.want {
				t.Fatalf("case %d: expected %s, got %s (err=%v)", i, tc.want, got.ISO(), err)
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("case %d: expected ErrInvalidDate, got %v", i, err)
		}
	}
}

func TestTransactionDecode(t *testing.T) {
	body := `{"id":7,"user_id":1,"title":"Salary","amount":3000.0,"type":"income",
		"category":"Work","description":null,"date":"2025-03-01T00:00:00",
		"created_at":"2025-03-02T08:30:00.123456"}`
	var tx Transaction
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.ID != 7 || tx.Type != Income || tx.Amount.StringFixed(2) != "3000.00" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Date.ISO() != "2025-03-01" || tx.CreatedAt.ISO() != "2025-03-02" {
		t.Fatalf("unexpected dates: %s %s", tx.Date.ISO(), tx.CreatedAt.ISO())
	}
	if tx.DescriptionText() != "" {
		t.Fatalf("expected empty description")
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" Income "); err != nil || tt != Income {
		t.Fatalf("expected income, got %q (%v)", tt, err)
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if Income.Sign() != "+" || Expense.Sign() != "-" {
		t.Fatalf("unexpected signs")
	}
}

func TestDraftToCreate(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	d := DefaultDraft(now)
	if d.Type != "expense" || d.Category != "Food" || d.Date != "2025-03-14" {
		t.Fatalf("unexpected default draft: %+v", d)
	}

	d.Title = "  Groceries "
	d.Amount = "12,40"
	tc, err := d.ToCreate()
	if err != nil {
		t.Fatalf("ToCreate: %v", err)
	}
	if tc.Title != "Groceries" || tc.Amount.StringFixed(2) != "12.40" || tc.Type != Expense {
		t.Fatalf("unexpected payload: %+v", tc)
	}
	if tc.Description != nil {
		t.Fatalf("expected nil description")
	}
	b, _ := json.Marshal(tc)
	want := `{"title":"Groceries","amount":12.4,"type":"expense","category":"Food","date":"2025-03-14T00:00:00Z"}`
	if string(b) != want {
		t.Fatalf("payload json\n got %s\nwant %s", b, want)
	}
}

func TestDraftWidgetConstraints(t *testing.T) {
	base := Draft{Title: "x", Amount: "1", Type: "expense", Category: "Food", Date: "2025-01-01"}
	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"missing title", func(d *Draft) { d.Title = "   " }, ErrEmptyTitle},
		{"missing amount", func(d *Draft) { d.Amount = "" }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = "-4" }, ErrInvalidAmount},
		{"bad type", func(d *Draft) { d.Type = "gift" }, ErrInvalidType},
		{"bad date", func(d *Draft) { d.Date = "14/03/2025" }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := base
			tc.mutate(&d)
			if _, err := d.ToCreate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
