package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"budgetdash/internal/amqp"
	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/records"
	"budgetdash/internal/reference"
)

// ErrInvalidRecord wraps every validation and reference-integrity failure so
// callers can tell bad input apart from store errors.
var ErrInvalidRecord = errors.New("invalid record")

// Publisher receives a change event after every successful write.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// RecordService is the single write path for expenses and indirect costs.
// It validates, checks references against the catalog, stores and then
// publishes a change event.
type RecordService struct {
	store     records.Store
	catalog   *reference.Catalog
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger
	newID     func() string
}

func NewRecordService(store records.Store, catalog *reference.Catalog, publisher Publisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentRecords)
	return &RecordService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		newID:     uuid.NewString,
	}
}

// NewExpense is the input for CreateExpense. An empty Status means pending.
type NewExpense struct {
	DepartmentID string
	CategoryID   string
	Description  string
	Amount       core.Money
	Date         core.Date
	Status       core.Status
	CreatedBy    string
}

// ExpensePatch changes the non-nil fields. A zero Version skips the
// optimistic concurrency check.
type ExpensePatch struct {
	DepartmentID *string
	CategoryID   *string
	Description  *string
	Amount       *core.Money
	Date         *core.Date
	Version      int64
}

type NewIndirectCost struct {
	CategoryID  string
	Description string
	Amount      core.Money
	Date        core.Date
	Policy      core.AllocationPolicy
}

type IndirectCostPatch struct {
	CategoryID  *string
	Description *string
	Amount      *core.Money
	Date        *core.Date
	Policy      *core.AllocationPolicy
	Version     int64
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
}

func (s *RecordService) checkExpense(e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.catalog.CheckExpense(e); err != nil {
		return invalid(err)
	}
	return nil
}

func (s *RecordService) checkIndirectCost(c core.IndirectCostRecord) error {
	if err := c.Validate(); err != nil {
		return invalid(err)
	}
	if err := s.catalog.CheckIndirectCost(c); err != nil {
		return invalid(err)
	}
	return nil
}

func (s *RecordService) CreateExpense(ctx context.Context, in NewExpense) (core.ExpenseRecord, error) {
	if in.Status == "" {
		in.Status = core.StatusPending
	}
	e := core.ExpenseRecord{
		ID:           s.newID(),
		DepartmentID: strings.TrimSpace(in.DepartmentID),
		CategoryID:   strings.TrimSpace(in.CategoryID),
		Description:  normalizeText(in.Description),
		Amount:       in.Amount,
		Date:         in.Date,
		Status:       in.Status,
		CreatedBy:    strings.TrimSpace(in.CreatedBy),
	}
	if err := s.checkExpense(e); err != nil {
		return core.ExpenseRecord{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ctx, amqp.KindExpense, amqp.OpCreated, saved.ID, saved.Version, saved.Amount.Cents)
	return saved, nil
}

func (s *RecordService) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *RecordService) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	return s.store.ListExpenses(ctx)
}

func (s *RecordService) loadExpense(ctx context.Context, id string, version int64) (core.ExpenseRecord, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if version != 0 && version != e.Version {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s at version %d: %w", id, version, records.ErrConflict)
	}
	return e, nil
}

func (s *RecordService) UpdateExpense(ctx context.Context, id string, p ExpensePatch) (core.ExpenseRecord, error) {
	e, err := s.loadExpense(ctx, id, p.Version)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if p.DepartmentID != nil {
		e.DepartmentID = strings.TrimSpace(*p.DepartmentID)
	}
	if p.CategoryID != nil {
		e.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.Description != nil {
		e.Description = normalizeText(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if err := s.checkExpense(e); err != nil {
		return core.ExpenseRecord{}, err
	}

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, amqp.KindExpense, amqp.OpUpdated, saved.ID, saved.Version, saved.Amount.Cents)
	return saved, nil
}

// SetExpenseStatus moves an expense between pending, approved and rejected.
// Any transition is allowed; only approved expenses reach the allocation.
func (s *RecordService) SetExpenseStatus(ctx context.Context, id string, status core.Status, version int64) (core.ExpenseRecord, error) {
	if !status.Valid() {
		return core.ExpenseRecord{}, invalid(fmt.Errorf("%w: %q", core.ErrInvalidStatus, status))
	}
	e, err := s.loadExpense(ctx, id, version)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.Status == status {
		return e, nil
	}
	e.Status = status

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("update expense status: %w", err)
	}
	s.changed(ctx, amqp.KindExpense, amqp.OpStatusChanged, saved.ID, saved.Version, saved.Amount.Cents)
	return saved, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, id string) error {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, amqp.KindExpense, amqp.OpDeleted, id, e.Version, e.Amount.Cents)
	return nil
}

func (s *RecordService) CreateIndirectCost(ctx context.Context, in NewIndirectCost) (core.IndirectCostRecord, error) {
	c := core.IndirectCostRecord{
		ID:          s.newID(),
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Description: normalizeText(in.Description),
		Amount:      in.Amount,
		Date:        in.Date,
		Policy:      in.Policy,
	}
	if err := s.checkIndirectCost(c); err != nil {
		return core.IndirectCostRecord{}, err
	}

	saved, err := s.store.CreateIndirectCost(ctx, c)
	if err != nil {
		return core.IndirectCostRecord{}, fmt.Errorf("save indirect cost: %w", err)
	}
	s.changed(ctx, amqp.KindIndirectCost, amqp.OpCreated, saved.ID, saved.Version, saved.Amount.Cents)
	return saved, nil
}

func (s *RecordService) GetIndirectCost(ctx context.Context, id string) (core.IndirectCostRecord, error) {
	return s.store.GetIndirectCost(ctx, id)
}

func (s *RecordService) ListIndirectCosts(ctx context.Context) ([]core.IndirectCostRecord, error) {
	return s.store.ListIndirectCosts(ctx)
}

func (s *RecordService) UpdateIndirectCost(ctx context.Context, id string, p IndirectCostPatch) (core.IndirectCostRecord, error) {
	c, err := s.store.GetIndirectCost(ctx, id)
	if err != nil {
		return core.IndirectCostRecord{}, err
	}
	if p.Version != 0 && p.Version != c.Version {
		return core.IndirectCostRecord{}, fmt.Errorf("indirect cost %s at version %d: %w", id, p.Version, records.ErrConflict)
	}
	if p.CategoryID != nil {
		c.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.Description != nil {
		c.Description = normalizeText(*p.Description)
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.Policy != nil {
		c.Policy = *p.Policy
	}
	if err := s.checkIndirectCost(c); err != nil {
		return core.IndirectCostRecord{}, err
	}

	saved, err := s.store.UpdateIndirectCost(ctx, c)
	if err != nil {
		return core.IndirectCostRecord{}, fmt.Errorf("update indirect cost: %w", err)
	}
	s.changed(ctx, amqp.KindIndirectCost, amqp.OpUpdated, saved.ID, saved.Version, saved.Amount.Cents)
	return saved, nil
}

func (s *RecordService) DeleteIndirectCost(ctx context.Context, id string) error {
	c, err := s.store.GetIndirectCost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteIndirectCost(ctx, id); err != nil {
		return fmt.Errorf("delete indirect cost: %w", err)
	}
	s.changed(ctx, amqp.KindIndirectCost, amqp.OpDeleted, id, c.Version, c.Amount.Cents)
	return nil
}

// changed logs the write and publishes the change event. A publish failure
// is logged only: the record is already stored.
func (s *RecordService) changed(ctx context.Context, kind amqp.RecordKind, op amqp.Operation, id string, version, amountCents int64) {
	s.events.LogRecordChanged(ctx, string(op), string(kind), id, version, amountCents)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping change event", log.FieldRecordID, id)
		return
	}
	msg := amqp.NewRecordChangedMessage(kind, id, op, version)
	if err := s.publisher.PublishRecordChanged(ctx, msg); err != nil {
		s.events.LogError(ctx, "Failed to publish change event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithRecord(string(kind), id, version).WithErrorType(log.ErrorTypeNetwork))
	}
}

// Close releases the store and, when it holds a connection, the publisher.
func (s *RecordService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
