/*
ledger.go - Remaining-balance tracking for registrations

PURPOSE:
  Every payment moves money from a registration's remaining balance (rest)
  to its paid total. The Ledger is the only code that writes rest, and it
  always does so in the same store transaction that writes the payment.

CRITICAL INVARIANTS:
  1. BOUNDED: 0 <= rest <= amount after every operation
  2. CONSISTENT: rest = amount - sum(payment amounts)
  3. ATOMIC: the payment write and the rest write commit together or not
     at all

LAZY REST:
  A fresh registration has no rest. Registration.Rest() treats that as the
  full amount, so the first payment sees the whole balance outstanding.

EDITS:
  Changing a payment from 50 to 80 needs 30 more of headroom; changing it
  from 50 to 30 gives 20 back. Both are the same rule: delta = new - old
  must not exceed the current rest.

EXAMPLE FLOW:
  Registration amount 100, rest unset
  1. ApplyPayment 60        -> rest 40
  2. ApplyPayment 50        -> OverpaymentError, rest still 40
  3. EditPayment #1 60 -> 30 -> rest 70
  4. DeletePayment #1       -> rest 100

SEE ALSO:
  - store.go: TxStore and GetRegistrationForUpdate
  - guard.go: deletion rules
*/
package center

import (
	"context"
	"fmt"
	"strings"
)

// PaymentInput carries the fields of a payment. ModuleID and StudentID are
// optional; when set they must match the registration.
type PaymentInput struct {
	RegistrationID RegistrationID
	ModuleID       ModuleID
	StudentID      StudentID
	PaymentDate    string
	Amount         Money
	Payer          string
	PayerNumber    string
	PaymentMode    PaymentMode
}

// Ledger applies, edits and refunds payments against registrations.
type Ledger struct {
	store TxStore
}

func NewLedger(store TxStore) *Ledger {
	return &Ledger{store: store}
}

// ApplyPayment records a new payment and lowers the registration's rest by
// its amount.
func (l *Ledger) ApplyPayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	var created *Payment
	err := l.store.WithTx(ctx, func(tx Store) error {
		reg, err := lockRegistration(ctx, tx, in.RegistrationID)
		if err != nil {
			return err
		}

		p, err := paymentFor(reg, in)
		if err != nil {
			return err
		}

		rest := reg.Rest()
		if p.Amount > rest {
			return &OverpaymentError{RegistrationID: reg.ID, Rest: rest, Requested: p.Amount}
		}

		reg.setRest(rest - p.Amount)
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return fmt.Errorf("update registration balance: %w", err)
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// EditPayment replaces payment id with in and moves the registration's rest
// by the difference between the new and old amounts.
func (l *Ledger) EditPayment(ctx context.Context, id PaymentID, in PaymentInput) (*Payment, error) {
	var edited *Payment
	err := l.store.WithTx(ctx, func(tx Store) error {
		existing, reg, err := lockPayment(ctx, tx, id)
		if err != nil {
			return err
		}
		if reg == nil {
			return notFound("registration", int64(existing.RegistrationID))
		}
		if in.RegistrationID == 0 {
			in.RegistrationID = existing.RegistrationID
		}
		if in.RegistrationID != existing.RegistrationID {
			return &ValidationError{Field: "registrationId", Message: "a payment cannot be moved to another registration"}
		}

		p, err := paymentFor(reg, in)
		if err != nil {
			return err
		}
		p.ID = existing.ID

		rest := reg.Rest()
		delta := p.Amount - existing.Amount
		if delta > rest {
			return &OverpaymentError{RegistrationID: reg.ID, Rest: rest, Requested: delta}
		}

		reg.setRest(rest - delta)
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return fmt.Errorf("update registration balance: %w", err)
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		edited = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// RefundPayment deletes payment id and credits its amount back to the
// registration's rest.
func (l *Ledger) RefundPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	var deleted *Payment
	err := l.store.WithTx(ctx, func(tx Store) error {
		p, reg, err := lockPayment(ctx, tx, id)
		if err != nil {
			return err
		}
		// The registration can only be gone if it was removed behind the
		// guard's back; the payment is still deleted.
		if reg != nil {
			reg.setRest((reg.Rest() + p.Amount).Min(reg.Amount))
			if err := tx.UpdateRegistration(ctx, reg); err != nil {
				return fmt.Errorf("update registration balance: %w", err)
			}
		}

		if err := tx.DeletePayment(ctx, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Balance summarizes what is owed, paid and outstanding on a registration.
func (l *Ledger) Balance(ctx context.Context, id RegistrationID) (*Balance, error) {
	reg, err := l.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, notFound("registration", int64(id))
	}
	n, err := l.store.CountPaymentsByRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}
	return &Balance{
		RegistrationID: reg.ID,
		Amount:         reg.Amount,
		Paid:           reg.Paid(),
		Rest:           reg.Rest(),
		Payments:       int(n),
	}, nil
}

func lockRegistration(ctx context.Context, tx Store, id RegistrationID) (*Registration, error) {
	reg, err := tx.GetRegistrationForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, notFound("registration", int64(id))
	}
	return reg, nil
}

// lockPayment loads payment id and locks its registration. The payment is
// read again once the lock is held, so an edit or refund that committed while
// this transaction waited is seen. reg is nil if the registration is gone.
func lockPayment(ctx context.Context, tx Store, id PaymentID) (*Payment, *Registration, error) {
	p, err := tx.GetPayment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load payment: %w", err)
	}
	if p == nil {
		return nil, nil, notFound("payment", int64(id))
	}
	reg, err := tx.GetRegistrationForUpdate(ctx, p.RegistrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load registration: %w", err)
	}
	p, err = tx.GetPayment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load payment: %w", err)
	}
	if p == nil {
		return nil, nil, notFound("payment", int64(id))
	}
	return p, reg, nil
}

// paymentFor checks in against reg and builds the payment record. The
// denormalized module and student IDs always come from the registration.
func paymentFor(reg *Registration, in PaymentInput) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if in.ModuleID != 0 && in.ModuleID != reg.ModuleID {
		return nil, &ValidationError{Field: "moduleId", Message: "does not match the registration's module"}
	}
	if in.StudentID != 0 && in.StudentID != reg.StudentID {
		return nil, &ValidationError{Field: "studentId", Message: "does not match the registration's student"}
	}
	date, err := ParseDate("paymentDate", in.PaymentDate)
	if err != nil {
		return nil, err
	}
	payerNumber := strings.TrimSpace(in.PayerNumber)
	if payerNumber == "" || strings.TrimLeft(payerNumber, "0123456789") != "" {
		return nil, &ValidationError{Field: "payerNumber", Message: "must contain only digits"}
	}
	if in.PaymentMode != "" && !in.PaymentMode.Valid() {
		return nil, &ValidationError{Field: "paymentMode", Message: fmt.Sprintf("unknown payment mode %q", in.PaymentMode)}
	}

	return &Payment{
		RegistrationID: reg.ID,
		ModuleID:       reg.ModuleID,
		StudentID:      reg.StudentID,
		PaymentDate:    date,
		Amount:         in.Amount,
		Payer:          strings.TrimSpace(in.Payer),
		PayerNumber:    payerNumber,
		PaymentMode:    in.PaymentMode,
	}, nil
}
