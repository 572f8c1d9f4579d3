package center

import (
	"context"
	"fmt"
)

// =============================================================================
// DELETION GUARD - Existence and dependency checks before deletes
// =============================================================================

// Guard turns deletes into domain errors: a missing record is a
// NotFoundError rather than a raw store failure, and a registration that
// still has payments is a ConflictError.
//
// Students and modules are deleted without checking their registrations.
// Whether that should be blocked the way registrations are blocked by
// payments is an open product question.
type Guard struct {
	store  TxStore
	ledger *Ledger
}

func NewGuard(store TxStore, ledger *Ledger) *Guard {
	return &Guard{store: store, ledger: ledger}
}

// DeleteRegistration removes a registration that has no payments and returns
// the deleted record.
func (g *Guard) DeleteRegistration(ctx context.Context, id RegistrationID) (*Registration, error) {
	var deleted *Registration
	err := g.store.WithTx(ctx, func(tx Store) error {
		reg, err := tx.GetRegistrationForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("load registration: %w", err)
		}
		if reg == nil {
			return notFound("registration", int64(id))
		}

		n, err := tx.CountPaymentsByRegistration(ctx, id)
		if err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		if n > 0 {
			return &ConflictError{Entity: "registration", ID: int64(id), Reason: "has linked payments"}
		}

		if err := tx.DeleteRegistration(ctx, id); err != nil {
			return fmt.Errorf("delete registration: %w", err)
		}
		deleted = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (g *Guard) DeleteStudent(ctx context.Context, id StudentID) (*Student, error) {
	s, err := g.store.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if s == nil {
		return nil, notFound("student", int64(id))
	}
	if err := g.store.DeleteStudent(ctx, id); err != nil {
		return nil, fmt.Errorf("delete student: %w", err)
	}
	return s, nil
}

func (g *Guard) DeleteModule(ctx context.Context, id ModuleID) (*Module, error) {
	m, err := g.store.GetModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if m == nil {
		return nil, notFound("module", int64(id))
	}
	if err := g.store.DeleteModule(ctx, id); err != nil {
		return nil, fmt.Errorf("delete module: %w", err)
	}
	return m, nil
}

// DeletePayment removes a payment. The ledger credits the amount back to the
// registration in the same transaction.
func (g *Guard) DeletePayment(ctx context.Context, id PaymentID) (*Payment, error) {
	return g.ledger.RefundPayment(ctx, id)
}
