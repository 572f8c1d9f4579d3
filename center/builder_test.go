package center_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/training-center/center"
)

// =============================================================================
// CREATE
// =============================================================================

func TestCreateRegistration_EndDateFromModuleDuration(t *testing.T) {
	f := newFixture(t)

	// GIVEN: a 30-day module
	student := f.student(t)
	module := f.module(t, 30)

	// WHEN: a student registers starting 2024-01-01
	reg, err := f.builder.CreateRegistration(f.ctx, center.RegistrationInput{
		StudentID:    student.ID,
		ModuleID:     module.ID,
		DateRegister: "2023-12-20",
		StartDate:    "2024-01-01",
		Amount:       center.Units(100),
	})

	// THEN: the course ends 30 calendar days later and nothing is paid yet
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", reg.EndDate.String())
	assert.Equal(t, "2023-12-20", reg.DateRegister.String())
	assert.Nil(t, reg.RestValue, "rest stays unset until the first payment")
	assert.Equal(t, center.Units(100), reg.Rest())
	assert.Equal(t, center.Money(0), reg.Paid())

	stored := f.reload(t, reg.ID)
	assert.Equal(t, *reg, *stored)
}

func TestCreateRegistration_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	module := f.module(t, 10)

	tests := []struct {
		name     string
		student  center.StudentID
		module   center.ModuleID
		wantName string
	}{
		{"missing module", student.ID, 999, "module"},
		{"missing student", 999, module.ID, "student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.builder.CreateRegistration(f.ctx, center.RegistrationInput{
				StudentID:    tt.student,
				ModuleID:     tt.module,
				DateRegister: "2024-01-01",
				StartDate:    "2024-01-01",
				Amount:       center.Units(10),
			})

			var nf *center.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.wantName, nf.Entity)
			assert.Equal(t, int64(999), nf.ID)
			assert.True(t, center.IsNotFound(err))
		})
	}

	regs, err := f.catalog.ListRegistrations(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestCreateRegistration_InvalidDates(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	module := f.module(t, 10)

	tests := []struct {
		name         string
		dateRegister string
		startDate    string
		wantField    string
	}{
		{"missing start", "2024-01-01", "", "startDate"},
		{"malformed start", "2024-01-01", "2024-13-01", "startDate"},
		{"missing register date", "", "2024-01-01", "dateRegister"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.builder.CreateRegistration(f.ctx, center.RegistrationInput{
				StudentID:    student.ID,
				ModuleID:     module.ID,
				DateRegister: tt.dateRegister,
				StartDate:    tt.startDate,
				Amount:       center.Units(10),
			})

			var dateErr *center.InvalidDateError
			require.ErrorAs(t, err, &dateErr)
			assert.Equal(t, tt.wantField, dateErr.Field)
		})
	}
}

func TestCreateRegistration_AmountMustBePositive(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	module := f.module(t, 10)

	for _, amount := range []center.Money{0, -100} {
		_, err := f.builder.CreateRegistration(f.ctx, center.RegistrationInput{
			StudentID:    student.ID,
			ModuleID:     module.ID,
			DateRegister: "2024-01-01",
			StartDate:    "2024-01-01",
			Amount:       amount,
		})

		var ve *center.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "amount", ve.Field)
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdateRegistration_PartialLeavesOtherFields(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	// WHEN: only the registration date changes
	dateRegister := "2023-11-30"
	updated, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{DateRegister: &dateRegister})

	// THEN: everything else is untouched
	require.NoError(t, err)
	assert.Equal(t, "2023-11-30", updated.DateRegister.String())
	assert.Equal(t, reg.StartDate, updated.StartDate)
	assert.Equal(t, reg.EndDate, updated.EndDate)
	assert.Equal(t, reg.Amount, updated.Amount)
	assert.Equal(t, reg.StudentID, updated.StudentID)
	assert.Nil(t, updated.RestValue)
}

func TestUpdateRegistration_RecomputesEndDate(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	// WHEN: the start moves
	start := "2024-02-01"
	updated, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", updated.EndDate.String(), "2024 is a leap year")

	// WHEN: the module changes to a 7-day one
	short := f.module(t, 7)
	updated, err = f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{ModuleID: &short.ID})
	require.NoError(t, err)
	assert.Equal(t, short.ID, updated.ModuleID)
	assert.Equal(t, "2024-02-08", updated.EndDate.String())
}

func TestUpdateRegistration_RevalidatesReferences(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	missingModule := center.ModuleID(404)
	_, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{ModuleID: &missingModule})
	assert.True(t, center.IsNotFound(err))

	missingStudent := center.StudentID(404)
	_, err = f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{StudentID: &missingStudent})
	assert.True(t, center.IsNotFound(err))

	badDate := "not-a-date"
	_, err = f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{StartDate: &badDate})
	assert.ErrorIs(t, err, center.ErrInvalidDate)

	// AND: nothing was written
	assert.Equal(t, *reg, *f.reload(t, reg.ID))
}

func TestUpdateRegistration_MovesPaymentsAlong(t *testing.T) {
	f := newFixture(t)

	// GIVEN: a registration with 40 paid
	reg := f.registration(t, center.Units(100))
	p := f.mustPay(t, reg, center.Units(40))
	oldStudent := reg.StudentID

	// WHEN: it is moved to another student and module
	student := f.student(t)
	module := f.module(t, 10)
	_, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{
		StudentID: &student.ID,
		ModuleID:  &module.ID,
	})
	require.NoError(t, err)

	// THEN: the payment follows
	stored, err := f.catalog.GetPayment(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, stored.StudentID)
	assert.Equal(t, module.ID, stored.ModuleID)

	detail, err := f.catalog.GetStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Registrations, 1)
	require.Len(t, detail.Payments, 1)
	assert.Equal(t, p.ID, detail.Payments[0].ID)

	previous, err := f.catalog.GetStudent(f.ctx, oldStudent)
	require.NoError(t, err)
	assert.Empty(t, previous.Payments)

	// AND: an edit that sends the stored keys back is accepted
	edited, err := f.ledger.EditPayment(f.ctx, p.ID, center.PaymentInput{
		RegistrationID: stored.RegistrationID,
		ModuleID:       stored.ModuleID,
		StudentID:      stored.StudentID,
		PaymentDate:    stored.PaymentDate.String(),
		Amount:         center.Units(50),
		Payer:          stored.Payer,
		PayerNumber:    stored.PayerNumber,
		PaymentMode:    stored.PaymentMode,
	})
	require.NoError(t, err)
	assert.Equal(t, center.Units(50), edited.Amount)
	f.assertConsistent(t, reg.ID)
}

func TestUpdateRegistration_NotFound(t *testing.T) {
	f := newFixture(t)

	amount := center.Units(10)
	_, err := f.builder.UpdateRegistration(f.ctx, 42, center.RegistrationPatch{Amount: &amount})

	var nf *center.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "registration", nf.Entity)
}

func TestUpdateRegistration_AmountChangeKeepsPaidTotal(t *testing.T) {
	f := newFixture(t)

	// GIVEN: 100 owed, 60 paid
	reg := f.registration(t, center.Units(100))
	f.mustPay(t, reg, center.Units(60))

	// WHEN: the agreed amount rises to 150
	amount := center.Units(150)
	updated, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{Amount: &amount})

	// THEN: the 60 already paid still counts
	require.NoError(t, err)
	assert.Equal(t, center.Units(90), updated.Rest())
	assert.Equal(t, center.Units(60), updated.Paid())
	f.assertConsistent(t, reg.ID)

	// WHEN: the amount drops below what was paid
	tooLow := center.Units(50)
	_, err = f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{Amount: &tooLow})

	// THEN: refused, nothing changes
	var ve *center.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)
	assert.Equal(t, center.Units(150), f.reload(t, reg.ID).Amount)
	f.assertConsistent(t, reg.ID)
}

func TestUpdateRegistration_AmountChangeBeforeAnyPayment(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	amount := center.Units(80)
	updated, err := f.builder.UpdateRegistration(f.ctx, reg.ID, center.RegistrationPatch{Amount: &amount})

	require.NoError(t, err)
	assert.Nil(t, updated.RestValue)
	assert.Equal(t, center.Units(80), updated.Rest())
}

func TestEndDate(t *testing.T) {
	start, err := center.ParseDate("startDate", "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-31", center.EndDate(start, &center.Module{Duration: 30}).String())
	assert.Equal(t, "2024-01-02", center.EndDate(start, &center.Module{Duration: 1}).String())
}
