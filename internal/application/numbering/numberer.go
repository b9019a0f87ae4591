// Package numbering issues formatted document numbers from the sequence ledger.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
)

// Numberer turns (type, date) into the next document number of that type.
// It holds no state of its own; every value comes from the repository it is handed,
// so the number commits or rolls back with the caller's transaction.
type Numberer struct {
	department string
	calendar   numbering.FiscalCalendar
	schemes    map[numbering.Type]numbering.Scheme
	location   *time.Location
	clock      func() time.Time
	metrics    *telemetry.ProcurementMetrics
}

// Option configures a Numberer
type Option func(*Numberer)

// WithClock replaces time.Now for the "today" used by Today
func WithClock(clock func() time.Time) Option {
	return func(n *Numberer) { n.clock = clock }
}

// WithLocation sets the zone in which dates are assigned to fiscal periods
func WithLocation(loc *time.Location) Option {
	return func(n *Numberer) { n.location = loc }
}

// WithMetrics counts issued numbers per type
func WithMetrics(m *telemetry.ProcurementMetrics) Option {
	return func(n *Numberer) { n.metrics = m }
}

// NewNumberer creates a Numberer for one department
func NewNumberer(department string, calendar numbering.FiscalCalendar, schemes map[numbering.Type]numbering.Scheme, opts ...Option) *Numberer {
	n := &Numberer{
		department: department,
		calendar:   calendar,
		schemes:    schemes,
		location:   time.Local,
		clock:      time.Now,
		metrics:    telemetry.NewNoopProcurementMetrics(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FromConfig builds a Numberer from the numbering section of the configuration
func FromConfig(cfg config.NumberingConfig, opts ...Option) *Numberer {
	schemes := map[numbering.Type]numbering.Scheme{
		numbering.TypeOrder:   {Prefix: cfg.Order.Prefix, Width: cfg.Order.Width},
		numbering.TypeItem:    {Prefix: cfg.Item.Prefix, Width: cfg.Item.Width},
		numbering.TypeAsset:   {Prefix: cfg.Asset.Prefix, Width: cfg.Asset.Width},
		numbering.TypeJournal: {Prefix: cfg.Journal.Prefix, Width: cfg.Journal.Width},
	}
	return NewNumberer(cfg.Department, numbering.NewFiscalCalendar(cfg.BaseTerm, cfg.BaseYear), schemes, opts...)
}

// Next allocates the next value of typ in the fiscal period containing date and formats it.
// repo must be bound to the caller's transaction.
func (n *Numberer) Next(ctx context.Context, repo numbering.SequenceRepository, typ numbering.Type, date time.Time) (string, error) {
	scheme, ok := n.schemes[typ]
	if !ok {
		return "", fmt.Errorf("no numbering scheme for %s", typ)
	}
	period := n.Period(date)
	seq, err := repo.Allocate(ctx, numbering.Key{Department: n.department, Type: typ, Period: period})
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", typ, err)
	}
	n.metrics.RecordNumberIssued(ctx, string(typ))
	return scheme.Format(period, seq), nil
}

// NextToday is Next for the current date
func (n *Numberer) NextToday(ctx context.Context, repo numbering.SequenceRepository, typ numbering.Type) (string, error) {
	return n.Next(ctx, repo, typ, n.Today())
}

// Period resolves the fiscal period of date in the configured zone
func (n *Numberer) Period(date time.Time) int {
	return n.calendar.ResolvePeriod(date.In(n.location))
}

// Today returns midnight of the current day in the configured zone
func (n *Numberer) Today() time.Time {
	now := n.clock().In(n.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.location)
}
