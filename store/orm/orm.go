/*
Package orm provides a GORM-backed implementation of center.TxStore.

PURPOSE:
  Persists students, modules, registrations and payments in SQLite (local
  and tests) or PostgreSQL (production). Both dialects share the same
  models and queries; only the dialector and the unique-violation error
  differ.

KEY TABLES:
  students:      catalog, unique email (lower-cased) and phone_number
  modules:       catalog
  registrations: amount_cents, rest_cents (NULL until first payment)
  payments:      indexed by registration_id for the deletion guard

CONCURRENCY:
  Balance updates run in WithTx and read the registration through
  GetRegistrationForUpdate:
  - PostgreSQL: SELECT ... FOR UPDATE locks the row until commit
  - SQLite: the pool is pinned to one connection, so transactions are
    serialized (the dialect drops the FOR UPDATE clause)

USAGE:
  store, err := orm.Open(orm.Config{Driver: orm.DriverSQLite, DSN: "center.db"})
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on Open() with GORM AutoMigrate.

SEE ALSO:
  - center/store.go: interface definitions
  - center/store/memory.go: in-memory implementation for testing
*/
package orm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/warp/training-center/center"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database.
type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // file path / ":memory:" for sqlite, key=value DSN for postgres
	LogSQL bool
}

// Store implements center.TxStore with GORM. Inside WithTx the callback
// receives a Store bound to the transaction handle.
type Store struct {
	db *gorm.DB
}

var _ center.TxStore = (*Store)(nil)

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver != DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get connection pool: %w", err)
		}
		// One connection: serializes writers and keeps ":memory:" a single database.
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an open GORM handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&studentModel{}, &moduleModel{}, &registrationModel{}, &paymentModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "center.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(center.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) CreateStudent(ctx context.Context, st *center.Student) error {
	m := fromStudent(st)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	st.ID = center.StudentID(m.ID)
	st.Email = m.Email
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id center.StudentID) (*center.Student, error) {
	var m studentModel
	if err := s.db.WithContext(ctx).First(&m, int64(id)).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	st := m.toStudent()
	return &st, nil
}

func (s *Store) FindStudentByContact(ctx context.Context, email, phone string, exclude center.StudentID) (*center.Student, error) {
	var m studentModel
	err := s.db.WithContext(ctx).
		Where("(LOWER(email) = LOWER(?) OR phone_number = ?) AND id <> ?", email, phone, int64(exclude)).
		Order("id").
		First(&m).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	st := m.toStudent()
	return &st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]center.Student, error) {
	var rows []studentModel
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]center.Student, len(rows))
	for i, m := range rows {
		out[i] = m.toStudent()
	}
	return out, nil
}

func (s *Store) UpdateStudent(ctx context.Context, st *center.Student) error {
	m := fromStudent(st)
	if err := s.updateAll(ctx, &m); err != nil {
		return translate(err)
	}
	st.Email = m.Email
	return nil
}

func (s *Store) DeleteStudent(ctx context.Context, id center.StudentID) error {
	return s.db.WithContext(ctx).Delete(&studentModel{}, int64(id)).Error
}

// =============================================================================
// MODULES
// =============================================================================

func (s *Store) CreateModule(ctx context.Context, mod *center.Module) error {
	m := fromModule(mod)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	mod.ID = center.ModuleID(m.ID)
	return nil
}

func (s *Store) GetModule(ctx context.Context, id center.ModuleID) (*center.Module, error) {
	var m moduleModel
	if err := s.db.WithContext(ctx).First(&m, int64(id)).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	mod := m.toModule()
	return &mod, nil
}

func (s *Store) ListModules(ctx context.Context) ([]center.Module, error) {
	var rows []moduleModel
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]center.Module, len(rows))
	for i, m := range rows {
		out[i] = m.toModule()
	}
	return out, nil
}

func (s *Store) UpdateModule(ctx context.Context, mod *center.Module) error {
	m := fromModule(mod)
	return translate(s.updateAll(ctx, &m))
}

func (s *Store) DeleteModule(ctx context.Context, id center.ModuleID) error {
	return s.db.WithContext(ctx).Delete(&moduleModel{}, int64(id)).Error
}

// =============================================================================
// REGISTRATIONS
// =============================================================================

func (s *Store) CreateRegistration(ctx context.Context, r *center.Registration) error {
	m := fromRegistration(r)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	r.ID = center.RegistrationID(m.ID)
	return nil
}

func (s *Store) GetRegistration(ctx context.Context, id center.RegistrationID) (*center.Registration, error) {
	return s.getRegistration(s.db.WithContext(ctx), id)
}

// GetRegistrationForUpdate locks the row until the surrounding transaction
// ends. Only meaningful inside WithTx.
func (s *Store) GetRegistrationForUpdate(ctx context.Context, id center.RegistrationID) (*center.Registration, error) {
	return s.getRegistration(s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (s *Store) getRegistration(db *gorm.DB, id center.RegistrationID) (*center.Registration, error) {
	var m registrationModel
	if err := db.First(&m, int64(id)).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	r := m.toRegistration()
	return &r, nil
}

func (s *Store) ListRegistrations(ctx context.Context) ([]center.Registration, error) {
	return s.findRegistrations(s.db.WithContext(ctx))
}

func (s *Store) ListRegistrationsByStudent(ctx context.Context, id center.StudentID) ([]center.Registration, error) {
	return s.findRegistrations(s.db.WithContext(ctx).Where("student_id = ?", int64(id)))
}

func (s *Store) ListRegistrationsByModule(ctx context.Context, id center.ModuleID) ([]center.Registration, error) {
	return s.findRegistrations(s.db.WithContext(ctx).Where("module_id = ?", int64(id)))
}

func (s *Store) findRegistrations(db *gorm.DB) ([]center.Registration, error) {
	var rows []registrationModel
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]center.Registration, len(rows))
	for i, m := range rows {
		out[i] = m.toRegistration()
	}
	return out, nil
}

func (s *Store) UpdateRegistration(ctx context.Context, r *center.Registration) error {
	m := fromRegistration(r)
	return translate(s.updateAll(ctx, &m))
}

func (s *Store) DeleteRegistration(ctx context.Context, id center.RegistrationID) error {
	return s.db.WithContext(ctx).Delete(&registrationModel{}, int64(id)).Error
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) CreatePayment(ctx context.Context, p *center.Payment) error {
	m := fromPayment(p)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	p.ID = center.PaymentID(m.ID)
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id center.PaymentID) (*center.Payment, error) {
	var m paymentModel
	if err := s.db.WithContext(ctx).First(&m, int64(id)).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	p := m.toPayment()
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]center.Payment, error) {
	return s.findPayments(s.db.WithContext(ctx))
}

func (s *Store) ListPaymentsByRegistration(ctx context.Context, id center.RegistrationID) ([]center.Payment, error) {
	return s.findPayments(s.db.WithContext(ctx).Where("registration_id = ?", int64(id)))
}

func (s *Store) ListPaymentsByStudent(ctx context.Context, id center.StudentID) ([]center.Payment, error) {
	return s.findPayments(s.db.WithContext(ctx).Where("student_id = ?", int64(id)))
}

func (s *Store) findPayments(db *gorm.DB) ([]center.Payment, error) {
	var rows []paymentModel
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]center.Payment, len(rows))
	for i, m := range rows {
		out[i] = m.toPayment()
	}
	return out, nil
}

func (s *Store) CountPaymentsByRegistration(ctx context.Context, id center.RegistrationID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&paymentModel{}).
		Where("registration_id = ?", int64(id)).
		Count(&n).Error
	return n, err
}

func (s *Store) UpdatePayment(ctx context.Context, p *center.Payment) error {
	m := fromPayment(p)
	return translate(s.updateAll(ctx, &m))
}

func (s *Store) DeletePayment(ctx context.Context, id center.PaymentID) error {
	return s.db.WithContext(ctx).Delete(&paymentModel{}, int64(id)).Error
}

// =============================================================================
// UTILITIES
// =============================================================================

// updateAll writes every column of model (zero values and NULLs included)
// to the row with the model's primary key. Unlike Save it never inserts.
func (s *Store) updateAll(ctx context.Context, model any) error {
	return s.db.WithContext(ctx).Model(model).Select("*").Omit("id", "created_at").Updates(model).Error
}

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// translate maps driver-level unique violations to center.ErrDuplicateKey.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", center.ErrDuplicateKey, sqliteErr.Error())
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", center.ErrDuplicateKey, pgErr.Message)
	}
	return err
}
