package center_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/training-center/center"
)

func TestDeleteRegistration_BlockedByPayments(t *testing.T) {
	f := newFixture(t)

	// GIVEN: a registration with one payment
	reg := f.registration(t, center.Units(100))
	f.mustPay(t, reg, center.Units(10))

	// WHEN: it is deleted
	_, err := f.guard.DeleteRegistration(f.ctx, reg.ID)

	// THEN: conflict, and it is still there
	var conflict *center.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "has linked payments", conflict.Reason)
	assert.True(t, center.IsClientError(err))
	assert.NotNil(t, f.reload(t, reg.ID))
}

func TestDeleteRegistration_WithoutPayments(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	deleted, err := f.guard.DeleteRegistration(f.ctx, reg.ID)

	require.NoError(t, err)
	assert.Equal(t, *reg, *deleted)
	_, err = f.catalog.GetRegistration(f.ctx, reg.ID)
	assert.True(t, center.IsNotFound(err))

	// Deleting again reports it missing
	_, err = f.guard.DeleteRegistration(f.ctx, reg.ID)
	assert.True(t, center.IsNotFound(err))
}

func TestDeleteRegistration_AfterPaymentsRefunded(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))
	p := f.mustPay(t, reg, center.Units(10))

	_, err := f.guard.DeletePayment(f.ctx, p.ID)
	require.NoError(t, err)

	_, err = f.guard.DeleteRegistration(f.ctx, reg.ID)
	assert.NoError(t, err)
}

func TestDeleteStudentAndModule(t *testing.T) {
	f := newFixture(t)
	student := f.student(t)
	module := f.module(t, 5)

	deletedStudent, err := f.guard.DeleteStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, deletedStudent.ID)

	deletedModule, err := f.guard.DeleteModule(f.ctx, module.ID)
	require.NoError(t, err)
	assert.Equal(t, module.ID, deletedModule.ID)

	_, err = f.guard.DeleteStudent(f.ctx, student.ID)
	var nf *center.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "student", nf.Entity)

	_, err = f.guard.DeleteModule(f.ctx, module.ID)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "module", nf.Entity)
}

func TestDeleteStudent_WithRegistrationsIsAllowed(t *testing.T) {
	f := newFixture(t)
	reg := f.registration(t, center.Units(100))

	_, err := f.guard.DeleteStudent(f.ctx, reg.StudentID)

	require.NoError(t, err)
	assert.NotNil(t, f.reload(t, reg.ID), "registrations are not cascaded")
}

func TestDeletePayment_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.guard.DeletePayment(f.ctx, 3)

	var nf *center.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "payment", nf.Entity)
}
