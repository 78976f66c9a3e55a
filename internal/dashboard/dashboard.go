// Package dashboard drives the dashboard page: the recent transaction list,
// the current month's summary, and the add/delete actions. Every mutation is
// followed by a full refetch of both reads; nothing is patched locally.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/finance"
	"fintrack/internal/log"
)

// API is the part of the finance bindings the dashboard uses.
type API interface {
	ListTransactions(ctx context.Context, p finance.ListParams) ([]core.Transaction, error)
	MonthlySummary(ctx context.Context, year int, month time.Month) (*core.MonthlySummary, error)
	CreateTransaction(ctx context.Context, tc core.TransactionCreate) (*core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Notifier hears about mutations the API accepted.
type Notifier interface {
	TransactionCreated(ctx context.Context, tx core.Transaction)
	TransactionDeleted(ctx context.Context, id int64)
}

// DefaultLimit is how many recent transactions the list shows.
const DefaultLimit = 20

// State is one snapshot of what the page displays.
type State struct {
	Transactions []core.Transaction
	Summary      core.MonthlySummary
	Year         int
	Month        time.Month
	LoadedAt     time.Time
}

type Controller struct {
	api      API
	limit    int
	now      func() time.Time
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Controller)

// WithClock overrides time.Now, which picks the summary month and the
// draft's default date.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func New(api API, limit int, opts ...Option) *Controller {
	if limit <= 0 {
		limit = DefaultLimit
	}
	c := &Controller{
		api:    api,
		limit:  limit,
		now:    time.Now,
		logger: slog.Default().With(log.FieldComponent, log.ComponentDashboard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDraft returns the add form in its default state.
func (c *Controller) NewDraft() core.Draft {
	return core.DefaultDraft(c.now())
}

// Load fetches the recent transactions and this month's summary at the same
// time and returns once both are in. Either failure fails the load.
func (c *Controller) Load(ctx context.Context) (*State, error) {
	now := c.now()
	st := &State{Year: now.Year(), Month: now.Month()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := c.api.ListTransactions(gctx, finance.ListParams{Limit: c.limit})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		st.Transactions = txs
		return nil
	})
	g.Go(func() error {
		sum, err := c.api.MonthlySummary(gctx, st.Year, st.Month)
		if err != nil {
			return fmt.Errorf("monthly summary: %w", err)
		}
		st.Summary = *sum
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	st.LoadedAt = c.now()
	c.logger.DebugContext(ctx, "Dashboard loaded",
		log.FieldOperation, log.OpRefresh,
		"transactions", len(st.Transactions),
		log.FieldYear, st.Year,
		log.FieldMonth, int(st.Month))
	return st, nil
}

// Add submits the draft. A draft the form widgets would refuse, or a create
// the API rejects, changes nothing and hands the draft back as typed. After
// a successful create both reads are refetched and the returned draft is
// reset to defaults, even if the refetch itself fails.
func (c *Controller) Add(ctx context.Context, draft core.Draft) (*State, core.Draft, error) {
	tc, err := draft.ToCreate()
	if err != nil {
		return nil, draft, err
	}

	tx, err := c.api.CreateTransaction(ctx, tc)
	if err != nil {
		return nil, draft, fmt.Errorf("create transaction: %w", err)
	}

	c.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithTransaction(tx.ID, tx.Title, tx.Amount.StringFixed(2), string(tx.Type), tx.Category).
			WithOperation(log.OpCreate).ToSlice()...)
	if c.notifier != nil {
		c.notifier.TransactionCreated(ctx, *tx)
	}

	st, err := c.Load(ctx)
	return st, c.NewDraft(), err
}

// Delete removes a transaction and then refetches both reads whatever the
// delete returned. The delete error, if any, is reported alongside.
func (c *Controller) Delete(ctx context.Context, id int64) (*State, error) {
	delErr := c.api.DeleteTransaction(ctx, id)
	if delErr != nil {
		delErr = fmt.Errorf("delete transaction %d: %w", id, delErr)
		c.logger.WarnContext(ctx, "Delete failed, refreshing anyway",
			log.FieldTransactionID, id, "error", delErr)
	} else {
		c.logger.InfoContext(ctx, "Transaction deleted",
			log.FieldTransactionID, id, log.FieldOperation, log.OpDelete)
		if c.notifier != nil {
			c.notifier.TransactionDeleted(ctx, id)
		}
	}

	st, loadErr := c.Load(ctx)
	return st, errors.Join(delErr, loadErr)
}
