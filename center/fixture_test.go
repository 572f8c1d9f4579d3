package center_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/training-center/center"
	"github.com/warp/training-center/center/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fixture struct {
	ctx     context.Context
	store   *store.Memory
	catalog *center.Catalog
	builder *center.Builder
	ledger  *center.Ledger
	guard   *center.Guard
	seq     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemory()
	ledger := center.NewLedger(s)
	return &fixture{
		ctx:     context.Background(),
		store:   s,
		catalog: center.NewCatalog(s),
		builder: center.NewBuilder(s),
		ledger:  ledger,
		guard:   center.NewGuard(s, ledger),
	}
}

func (f *fixture) student(t *testing.T) *center.Student {
	t.Helper()
	f.seq++
	s, err := f.catalog.CreateStudent(f.ctx, center.Student{
		FullName:    "Jane Doe",
		PhoneNumber: fmt.Sprintf("%08d", f.seq),
		Email:       fmt.Sprintf("student%d@example.com", f.seq),
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) module(t *testing.T, duration int) *center.Module {
	t.Helper()
	m, err := f.catalog.CreateModule(f.ctx, center.Module{
		Name:     "Go Basics",
		Duration: duration,
		Price:    center.Units(100),
	})
	require.NoError(t, err)
	return m
}

// registration enrolls a fresh student in a fresh 30-day module.
func (f *fixture) registration(t *testing.T, amount center.Money) *center.Registration {
	t.Helper()
	reg, err := f.builder.CreateRegistration(f.ctx, center.RegistrationInput{
		StudentID:    f.student(t).ID,
		ModuleID:     f.module(t, 30).ID,
		DateRegister: "2024-01-01",
		StartDate:    "2024-01-01",
		Amount:       amount,
	})
	require.NoError(t, err)
	return reg
}

func (f *fixture) pay(reg *center.Registration, amount center.Money) (*center.Payment, error) {
	return f.ledger.ApplyPayment(f.ctx, center.PaymentInput{
		RegistrationID: reg.ID,
		PaymentDate:    "2024-01-05",
		Amount:         amount,
		Payer:          "John Doe",
		PayerNumber:    "12345678",
		PaymentMode:    center.PaymentCash,
	})
}

func (f *fixture) mustPay(t *testing.T, reg *center.Registration, amount center.Money) *center.Payment {
	t.Helper()
	p, err := f.pay(reg, amount)
	require.NoError(t, err)
	return p
}

func (f *fixture) edit(p *center.Payment, amount center.Money) (*center.Payment, error) {
	return f.ledger.EditPayment(f.ctx, p.ID, center.PaymentInput{
		PaymentDate: p.PaymentDate.String(),
		Amount:      amount,
		Payer:       p.Payer,
		PayerNumber: p.PayerNumber,
		PaymentMode: p.PaymentMode,
	})
}

func (f *fixture) reload(t *testing.T, id center.RegistrationID) *center.Registration {
	t.Helper()
	reg, err := f.catalog.GetRegistration(f.ctx, id)
	require.NoError(t, err)
	return reg
}

// assertConsistent checks 0 <= rest <= amount and rest = amount - sum(payments).
func (f *fixture) assertConsistent(t *testing.T, id center.RegistrationID) {
	t.Helper()
	reg := f.reload(t, id)
	payments, err := f.catalog.ListPaymentsForRegistration(f.ctx, id)
	require.NoError(t, err)

	var sum center.Money
	for _, p := range payments {
		sum += p.Amount
	}
	require.False(t, reg.Rest().IsNegative(), "rest must not be negative")
	require.LessOrEqual(t, reg.Rest(), reg.Amount, "rest must not exceed amount")
	require.Equal(t, reg.Amount-sum, reg.Rest(), "rest must equal amount minus payments")
}
