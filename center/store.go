/*
store.go - Persistence interface for the four record types

PURPOSE:
  Defines the boundary between the enrollment core and the database.
  The core treats the store as an opaque key-indexed record store:
  create/read/update/delete by primary key plus lookups by foreign key.

KEY INTERFACES:
  Store:   record CRUD for students, modules, registrations, payments
  TxStore: Store + WithTx for atomic read-check-write sequences

LOOKUP CONTRACT:
  Get* methods return (nil, nil) when the record does not exist. The
  core turns that into a NotFoundError; a non-nil error always means the
  store itself failed.

LOCKING:
  GetRegistrationForUpdate must be called inside WithTx. Implementations
  lock the row (SELECT ... FOR UPDATE) or serialize the whole transaction
  so that two payments on the same registration can't both read the same
  rest.

IMPLEMENTATIONS:
  - store/orm: GORM over SQLite or PostgreSQL
  - center/store: in-memory, for tests and local runs

SEE ALSO:
  - ledger.go: the main WithTx user
*/
package center

import "context"

// Store handles persistence of catalog and enrollment records.
type Store interface {
	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id StudentID) (*Student, error)
	// FindStudentByContact returns a student other than exclude whose email
	// or phone number matches.
	FindStudentByContact(ctx context.Context, email, phone string, exclude StudentID) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s *Student) error
	DeleteStudent(ctx context.Context, id StudentID) error

	CreateModule(ctx context.Context, m *Module) error
	GetModule(ctx context.Context, id ModuleID) (*Module, error)
	ListModules(ctx context.Context) ([]Module, error)
	UpdateModule(ctx context.Context, m *Module) error
	DeleteModule(ctx context.Context, id ModuleID) error

	CreateRegistration(ctx context.Context, r *Registration) error
	GetRegistration(ctx context.Context, id RegistrationID) (*Registration, error)
	GetRegistrationForUpdate(ctx context.Context, id RegistrationID) (*Registration, error)
	ListRegistrations(ctx context.Context) ([]Registration, error)
	ListRegistrationsByStudent(ctx context.Context, id StudentID) ([]Registration, error)
	ListRegistrationsByModule(ctx context.Context, id ModuleID) ([]Registration, error)
	UpdateRegistration(ctx context.Context, r *Registration) error
	DeleteRegistration(ctx context.Context, id RegistrationID) error

	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	ListPaymentsByRegistration(ctx context.Context, id RegistrationID) ([]Payment, error)
	ListPaymentsByStudent(ctx context.Context, id StudentID) ([]Payment, error)
	CountPaymentsByRegistration(ctx context.Context, id RegistrationID) (int64, error)
	UpdatePayment(ctx context.Context, p *Payment) error
	DeletePayment(ctx context.Context, id PaymentID) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
