package orm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/training-center/center"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRegistration(t *testing.T, s *Store, amount center.Money) *center.Registration {
	t.Helper()
	ctx := context.Background()

	student := &center.Student{FullName: "Jane Doe", PhoneNumber: "12345678", Email: "jane@example.com", Status: center.StudentActive}
	require.NoError(t, s.CreateStudent(ctx, student))
	module := &center.Module{Name: "Go Basics", Duration: 30, Price: center.Units(100), Status: center.ModuleActive}
	require.NoError(t, s.CreateModule(ctx, module))

	start, err := center.ParseDate("startDate", "2024-01-01")
	require.NoError(t, err)
	reg := &center.Registration{
		StudentID:    student.ID,
		ModuleID:     module.ID,
		DateRegister: start,
		StartDate:    start,
		EndDate:      center.EndDate(start, module),
		Amount:       amount,
	}
	require.NoError(t, s.CreateRegistration(ctx, reg))
	return reg
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestStore_PingAndMissingRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Ping(ctx))

	st, err := s.GetStudent(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, st)

	reg, err := s.GetRegistration(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, reg)

	p, err := s.GetPayment(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_RegistrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	reg := seedRegistration(t, s, center.MustMoney("150.75"))

	// GIVEN: a stored registration with rest unset
	got, err := s.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, *reg, *got)
	assert.Nil(t, got.RestValue, "unset rest is stored as NULL")

	// WHEN: rest is written
	rest := center.MustMoney("0.75")
	got.RestValue = &rest
	require.NoError(t, s.UpdateRegistration(ctx, got))

	// THEN: it reads back exactly
	again, err := s.GetRegistrationForUpdate(ctx, reg.ID)
	require.NoError(t, err)
	require.NotNil(t, again.RestValue)
	assert.Equal(t, center.Money(75), *again.RestValue)
	assert.Equal(t, "2024-01-31", again.EndDate.String())
}

func TestStore_DuplicateContactIsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateStudent(ctx, &center.Student{FullName: "A", PhoneNumber: "11111111", Email: "a@example.com"}))

	err := s.CreateStudent(ctx, &center.Student{FullName: "B", PhoneNumber: "22222222", Email: "a@example.com"})
	assert.ErrorIs(t, err, center.ErrDuplicateKey)

	err = s.CreateStudent(ctx, &center.Student{FullName: "C", PhoneNumber: "11111111", Email: "c@example.com"})
	assert.ErrorIs(t, err, center.ErrDuplicateKey)

	// Emails differing only in case are the same address
	err = s.CreateStudent(ctx, &center.Student{FullName: "D", PhoneNumber: "44444444", Email: "A@Example.com"})
	assert.ErrorIs(t, err, center.ErrDuplicateKey)

	found, err := s.FindStudentByContact(ctx, "A@EXAMPLE.COM", "", 0)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a@example.com", found.Email)

	found, err = s.FindStudentByContact(ctx, "a@example.com", "11111111", found.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	reg := seedRegistration(t, s, center.Units(100))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx center.Store) error {
		r, err := tx.GetRegistrationForUpdate(ctx, reg.ID)
		if err != nil {
			return err
		}
		zero := center.Money(0)
		r.RestValue = &zero
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, &center.Payment{RegistrationID: reg.ID, Amount: r.Amount, PaymentMode: center.PaymentCash}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, err := s.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RestValue)
	n, err := s.CountPaymentsByRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_UpdateDoesNotResurrectDeletedRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	module := &center.Module{Name: "Go", Duration: 3, Status: center.ModuleActive}
	require.NoError(t, s.CreateModule(ctx, module))
	require.NoError(t, s.DeleteModule(ctx, module.ID))

	module.Name = "Go Again"
	require.NoError(t, s.UpdateModule(ctx, module))

	got, err := s.GetModule(ctx, module.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// The center services run unchanged over the ORM store.
func TestStore_LedgerFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	reg := seedRegistration(t, s, center.Units(70))
	ledger := center.NewLedger(s)
	guard := center.NewGuard(s, ledger)

	pay := func(amount center.Money) (*center.Payment, error) {
		return ledger.ApplyPayment(ctx, center.PaymentInput{
			RegistrationID: reg.ID,
			PaymentDate:    "2024-01-10",
			Amount:         amount,
			Payer:          "John Doe",
			PayerNumber:    "5550100",
			PaymentMode:    center.PaymentCard,
		})
	}

	p, err := pay(center.Units(50))
	require.NoError(t, err)

	_, err = pay(center.Units(21))
	assert.ErrorIs(t, err, center.ErrOverpayment)

	edit := center.PaymentInput{
		PaymentDate: "2024-01-10",
		Amount:      center.Units(80),
		Payer:       "John Doe",
		PayerNumber: "5550100",
		PaymentMode: center.PaymentCard,
	}
	_, err = ledger.EditPayment(ctx, p.ID, edit)
	assert.ErrorIs(t, err, center.ErrOverpayment)

	edit.Amount = center.Units(30)
	_, err = ledger.EditPayment(ctx, p.ID, edit)
	require.NoError(t, err)

	b, err := ledger.Balance(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, center.Units(40), b.Rest)
	assert.Equal(t, center.Units(30), b.Paid)
	assert.Equal(t, 1, b.Payments)

	_, err = guard.DeleteRegistration(ctx, reg.ID)
	assert.ErrorIs(t, err, center.ErrConflict)

	_, err = guard.DeletePayment(ctx, p.ID)
	require.NoError(t, err)
	b, err = ledger.Balance(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, center.Units(70), b.Rest)

	deleted, err := guard.DeleteRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, deleted.ID)
}

func TestStore_ConcurrentPaymentsKeepRestConsistent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	reg := seedRegistration(t, s, center.Units(100))
	ledger := center.NewLedger(s)

	// WHEN: twenty payments of 10 race for a balance of 100
	var ok, overpaid atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.ApplyPayment(ctx, center.PaymentInput{
				RegistrationID: reg.ID,
				PaymentDate:    "2024-01-10",
				Amount:         center.Units(10),
				Payer:          "John Doe",
				PayerNumber:    "5550100",
				PaymentMode:    center.PaymentCash,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, center.ErrOverpayment):
				overpaid.Add(1)
			}
		}()
	}
	wg.Wait()

	// THEN: rest plus everything paid is still the amount
	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(10), overpaid.Load())

	got, err := s.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	payments, err := s.ListPaymentsByRegistration(ctx, reg.ID)
	require.NoError(t, err)
	var sum center.Money
	for _, p := range payments {
		sum += p.Amount
	}
	assert.Equal(t, center.Money(0), got.Rest())
	assert.Equal(t, got.Amount, sum+got.Rest())

	// WHEN: one payment is refunded several times at once
	var refunded, missing atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RefundPayment(ctx, payments[0].ID)
			switch {
			case err == nil:
				refunded.Add(1)
			case center.IsNotFound(err):
				missing.Add(1)
			}
		}()
	}
	wg.Wait()

	// THEN: it is credited back once
	assert.Equal(t, int32(1), refunded.Load())
	assert.Equal(t, int32(4), missing.Load())
	got, err = s.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, center.Units(10), got.Rest())
}
