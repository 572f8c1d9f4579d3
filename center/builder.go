package center

import (
	"context"
	"fmt"
)

// =============================================================================
// ENROLLMENT BUILDER - Creates and updates registrations
// =============================================================================

// RegistrationInput carries the fields of a new registration. Dates arrive
// as raw strings so the builder owns date validation.
type RegistrationInput struct {
	StudentID    StudentID
	ModuleID     ModuleID
	DateRegister string
	StartDate    string
	Amount       Money
}

// RegistrationPatch is a partial update; nil fields are left unchanged.
type RegistrationPatch struct {
	StudentID    *StudentID
	ModuleID     *ModuleID
	DateRegister *string
	StartDate    *string
	Amount       *Money
}

// Builder derives registrations from the catalog: it checks that the student
// and module exist, parses dates and computes the end date from the module's
// duration.
type Builder struct {
	store TxStore
}

func NewBuilder(store TxStore) *Builder {
	return &Builder{store: store}
}

// CreateRegistration validates in and persists a registration with rest unset.
func (b *Builder) CreateRegistration(ctx context.Context, in RegistrationInput) (*Registration, error) {
	if _, err := b.student(ctx, b.store, in.StudentID); err != nil {
		return nil, err
	}
	module, err := b.module(ctx, b.store, in.ModuleID)
	if err != nil {
		return nil, err
	}
	dateRegister, err := ParseDate("dateRegister", in.DateRegister)
	if err != nil {
		return nil, err
	}
	start, err := ParseDate("startDate", in.StartDate)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "amount must be positive"}
	}

	reg := &Registration{
		StudentID:    in.StudentID,
		ModuleID:     in.ModuleID,
		DateRegister: dateRegister,
		StartDate:    start,
		EndDate:      EndDate(start, module),
		Amount:       in.Amount,
	}
	if err := b.store.CreateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return reg, nil
}

// UpdateRegistration applies patch to registration id. Supplied references
// and dates are checked exactly as on create. Changing the amount keeps what
// was already paid, so rest moves by the same difference. Moving the
// registration to another student or module carries its payments along.
func (b *Builder) UpdateRegistration(ctx context.Context, id RegistrationID, patch RegistrationPatch) (*Registration, error) {
	var updated *Registration
	err := b.store.WithTx(ctx, func(tx Store) error {
		reg, err := tx.GetRegistrationForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("load registration: %w", err)
		}
		if reg == nil {
			return notFound("registration", int64(id))
		}
		prevStudent, prevModule := reg.StudentID, reg.ModuleID

		if patch.StudentID != nil {
			if _, err := b.student(ctx, tx, *patch.StudentID); err != nil {
				return err
			}
			reg.StudentID = *patch.StudentID
		}

		recompute := false
		if patch.ModuleID != nil {
			reg.ModuleID = *patch.ModuleID
			recompute = true
		}
		if patch.DateRegister != nil {
			d, err := ParseDate("dateRegister", *patch.DateRegister)
			if err != nil {
				return err
			}
			reg.DateRegister = d
		}
		if patch.StartDate != nil {
			d, err := ParseDate("startDate", *patch.StartDate)
			if err != nil {
				return err
			}
			reg.StartDate = d
			recompute = true
		}
		if recompute {
			module, err := b.module(ctx, tx, reg.ModuleID)
			if err != nil {
				return err
			}
			reg.EndDate = EndDate(reg.StartDate, module)
		}

		if patch.Amount != nil {
			if err := reprice(reg, *patch.Amount); err != nil {
				return err
			}
		}

		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		if reg.StudentID != prevStudent || reg.ModuleID != prevModule {
			if err := relinkPayments(ctx, tx, reg); err != nil {
				return err
			}
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EndDate is start plus the module's duration in calendar days.
func EndDate(start Date, m *Module) Date {
	return start.AddDays(m.Duration)
}

// relinkPayments copies reg's student and module onto its payments.
func relinkPayments(ctx context.Context, tx Store, reg *Registration) error {
	payments, err := tx.ListPaymentsByRegistration(ctx, reg.ID)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	for i := range payments {
		p := &payments[i]
		p.StudentID = reg.StudentID
		p.ModuleID = reg.ModuleID
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
	}
	return nil
}

// reprice changes the agreed amount while preserving the paid total.
func reprice(reg *Registration, amount Money) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	paid := reg.Paid()
	if amount < paid {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("amount cannot be less than the %s already paid", paid)}
	}
	if reg.RestValue != nil {
		reg.setRest(amount - paid)
	}
	reg.Amount = amount
	return nil
}

func (b *Builder) student(ctx context.Context, s Store, id StudentID) (*Student, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return nil, notFound("student", int64(id))
	}
	return st, nil
}

func (b *Builder) module(ctx context.Context, s Store, id ModuleID) (*Module, error) {
	m, err := s.GetModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if m == nil {
		return nil, notFound("module", int64(id))
	}
	return m, nil
}
