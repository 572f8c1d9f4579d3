// Package store provides an in-memory center.TxStore.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/training-center/center"
)

// =============================================================================
// TABLES - Unlocked record maps shared by Memory and its transaction view
// =============================================================================

type tables struct {
	students      map[center.StudentID]center.Student
	modules       map[center.ModuleID]center.Module
	registrations map[center.RegistrationID]center.Registration
	payments      map[center.PaymentID]center.Payment
	seq           sequences
}

// sequences mimic per-table autoincrement keys.
type sequences struct {
	student, module, registration, payment int64
}

func newTables() *tables {
	return &tables{
		students:      make(map[center.StudentID]center.Student),
		modules:       make(map[center.ModuleID]center.Module),
		registrations: make(map[center.RegistrationID]center.Registration),
		payments:      make(map[center.PaymentID]center.Payment),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.modules {
		c.modules[k] = v
	}
	for k, v := range t.registrations {
		c.registrations[k] = cloneRegistration(v)
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	c.seq = t.seq
	return c
}

func cloneRegistration(r center.Registration) center.Registration {
	if r.RestValue != nil {
		rest := *r.RestValue
		r.RestValue = &rest
	}
	return r
}

func (t *tables) CreateStudent(_ context.Context, s *center.Student) error {
	s.Email = strings.ToLower(s.Email)
	for _, other := range t.students {
		if other.Email == s.Email || other.PhoneNumber == s.PhoneNumber {
			return center.ErrDuplicateKey
		}
	}
	t.seq.student++
	s.ID = center.StudentID(t.seq.student)
	t.students[s.ID] = *s
	return nil
}

func (t *tables) GetStudent(_ context.Context, id center.StudentID) (*center.Student, error) {
	s, ok := t.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t *tables) FindStudentByContact(_ context.Context, email, phone string, exclude center.StudentID) (*center.Student, error) {
	for _, s := range sortedStudents(t.students) {
		if s.ID == exclude {
			continue
		}
		if (email != "" && strings.EqualFold(s.Email, email)) || (phone != "" && s.PhoneNumber == phone) {
			return &s, nil
		}
	}
	return nil, nil
}

func (t *tables) ListStudents(_ context.Context) ([]center.Student, error) {
	return sortedStudents(t.students), nil
}

func (t *tables) UpdateStudent(_ context.Context, s *center.Student) error {
	if _, ok := t.students[s.ID]; !ok {
		return nil
	}
	s.Email = strings.ToLower(s.Email)
	for _, other := range t.students {
		if other.ID != s.ID && (other.Email == s.Email || other.PhoneNumber == s.PhoneNumber) {
			return center.ErrDuplicateKey
		}
	}
	t.students[s.ID] = *s
	return nil
}

func (t *tables) DeleteStudent(_ context.Context, id center.StudentID) error {
	delete(t.students, id)
	return nil
}

func (t *tables) CreateModule(_ context.Context, m *center.Module) error {
	t.seq.module++
	m.ID = center.ModuleID(t.seq.module)
	t.modules[m.ID] = *m
	return nil
}

func (t *tables) GetModule(_ context.Context, id center.ModuleID) (*center.Module, error) {
	m, ok := t.modules[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (t *tables) ListModules(_ context.Context) ([]center.Module, error) {
	out := make([]center.Module, 0, len(t.modules))
	for _, m := range t.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tables) UpdateModule(_ context.Context, m *center.Module) error {
	if _, ok := t.modules[m.ID]; ok {
		t.modules[m.ID] = *m
	}
	return nil
}

func (t *tables) DeleteModule(_ context.Context, id center.ModuleID) error {
	delete(t.modules, id)
	return nil
}

func (t *tables) CreateRegistration(_ context.Context, r *center.Registration) error {
	t.seq.registration++
	r.ID = center.RegistrationID(t.seq.registration)
	t.registrations[r.ID] = cloneRegistration(*r)
	return nil
}

func (t *tables) GetRegistration(_ context.Context, id center.RegistrationID) (*center.Registration, error) {
	r, ok := t.registrations[id]
	if !ok {
		return nil, nil
	}
	r = cloneRegistration(r)
	return &r, nil
}

// GetRegistrationForUpdate needs no row lock: transactions hold the store
// mutex for their whole duration.
func (t *tables) GetRegistrationForUpdate(ctx context.Context, id center.RegistrationID) (*center.Registration, error) {
	return t.GetRegistration(ctx, id)
}

func (t *tables) ListRegistrations(_ context.Context) ([]center.Registration, error) {
	return t.filterRegistrations(func(center.Registration) bool { return true }), nil
}

func (t *tables) ListRegistrationsByStudent(_ context.Context, id center.StudentID) ([]center.Registration, error) {
	return t.filterRegistrations(func(r center.Registration) bool { return r.StudentID == id }), nil
}

func (t *tables) ListRegistrationsByModule(_ context.Context, id center.ModuleID) ([]center.Registration, error) {
	return t.filterRegistrations(func(r center.Registration) bool { return r.ModuleID == id }), nil
}

func (t *tables) filterRegistrations(keep func(center.Registration) bool) []center.Registration {
	var out []center.Registration
	for _, r := range t.registrations {
		if keep(r) {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tables) UpdateRegistration(_ context.Context, r *center.Registration) error {
	if _, ok := t.registrations[r.ID]; ok {
		t.registrations[r.ID] = cloneRegistration(*r)
	}
	return nil
}

func (t *tables) DeleteRegistration(_ context.Context, id center.RegistrationID) error {
	delete(t.registrations, id)
	return nil
}

func (t *tables) CreatePayment(_ context.Context, p *center.Payment) error {
	t.seq.payment++
	p.ID = center.PaymentID(t.seq.payment)
	t.payments[p.ID] = *p
	return nil
}

func (t *tables) GetPayment(_ context.Context, id center.PaymentID) (*center.Payment, error) {
	p, ok := t.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *tables) ListPayments(_ context.Context) ([]center.Payment, error) {
	return t.filterPayments(func(center.Payment) bool { return true }), nil
}

func (t *tables) ListPaymentsByRegistration(_ context.Context, id center.RegistrationID) ([]center.Payment, error) {
	return t.filterPayments(func(p center.Payment) bool { return p.RegistrationID == id }), nil
}

func (t *tables) ListPaymentsByStudent(_ context.Context, id center.StudentID) ([]center.Payment, error) {
	return t.filterPayments(func(p center.Payment) bool { return p.StudentID == id }), nil
}

func (t *tables) CountPaymentsByRegistration(_ context.Context, id center.RegistrationID) (int64, error) {
	var n int64
	for _, p := range t.payments {
		if p.RegistrationID == id {
			n++
		}
	}
	return n, nil
}

func (t *tables) filterPayments(keep func(center.Payment) bool) []center.Payment {
	var out []center.Payment
	for _, p := range t.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tables) UpdatePayment(_ context.Context, p *center.Payment) error {
	if _, ok := t.payments[p.ID]; ok {
		t.payments[p.ID] = *p
	}
	return nil
}

func (t *tables) DeletePayment(_ context.Context, id center.PaymentID) error {
	delete(t.payments, id)
	return nil
}

func sortedStudents(m map[center.StudentID]center.Student) []center.Student {
	out := make([]center.Student, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a center.TxStore backed by maps. Every call takes the store
// mutex; WithTx holds it for the whole callback, so transactions are fully
// serialized.
type Memory struct {
	mu   sync.RWMutex
	data *tables
}

var _ center.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: newTables()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(center.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(m.data); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *Memory) read(fn func(t *tables)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.data)
}

func (m *Memory) write(fn func(t *tables) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *Memory) CreateStudent(ctx context.Context, s *center.Student) error {
	return m.write(func(t *tables) error { return t.CreateStudent(ctx, s) })
}

func (m *Memory) GetStudent(ctx context.Context, id center.StudentID) (s *center.Student, err error) {
	m.read(func(t *tables) { s, err = t.GetStudent(ctx, id) })
	return
}

func (m *Memory) FindStudentByContact(ctx context.Context, email, phone string, exclude center.StudentID) (s *center.Student, err error) {
	m.read(func(t *tables) { s, err = t.FindStudentByContact(ctx, email, phone, exclude) })
	return
}

func (m *Memory) ListStudents(ctx context.Context) (out []center.Student, err error) {
	m.read(func(t *tables) { out, err = t.ListStudents(ctx) })
	return
}

func (m *Memory) UpdateStudent(ctx context.Context, s *center.Student) error {
	return m.write(func(t *tables) error { return t.UpdateStudent(ctx, s) })
}

func (m *Memory) DeleteStudent(ctx context.Context, id center.StudentID) error {
	return m.write(func(t *tables) error { return t.DeleteStudent(ctx, id) })
}

func (m *Memory) CreateModule(ctx context.Context, mod *center.Module) error {
	return m.write(func(t *tables) error { return t.CreateModule(ctx, mod) })
}

func (m *Memory) GetModule(ctx context.Context, id center.ModuleID) (mod *center.Module, err error) {
	m.read(func(t *tables) { mod, err = t.GetModule(ctx, id) })
	return
}

func (m *Memory) ListModules(ctx context.Context) (out []center.Module, err error) {
	m.read(func(t *tables) { out, err = t.ListModules(ctx) })
	return
}

func (m *Memory) UpdateModule(ctx context.Context, mod *center.Module) error {
	return m.write(func(t *tables) error { return t.UpdateModule(ctx, mod) })
}

func (m *Memory) DeleteModule(ctx context.Context, id center.ModuleID) error {
	return m.write(func(t *tables) error { return t.DeleteModule(ctx, id) })
}

func (m *Memory) CreateRegistration(ctx context.Context, r *center.Registration) error {
	return m.write(func(t *tables) error { return t.CreateRegistration(ctx, r) })
}

func (m *Memory) GetRegistration(ctx context.Context, id center.RegistrationID) (r *center.Registration, err error) {
	m.read(func(t *tables) { r, err = t.GetRegistration(ctx, id) })
	return
}

func (m *Memory) GetRegistrationForUpdate(ctx context.Context, id center.RegistrationID) (*center.Registration, error) {
	return m.GetRegistration(ctx, id)
}

func (m *Memory) ListRegistrations(ctx context.Context) (out []center.Registration, err error) {
	m.read(func(t *tables) { out, err = t.ListRegistrations(ctx) })
	return
}

func (m *Memory) ListRegistrationsByStudent(ctx context.Context, id center.StudentID) (out []center.Registration, err error) {
	m.read(func(t *tables) { out, err = t.ListRegistrationsByStudent(ctx, id) })
	return
}

func (m *Memory) ListRegistrationsByModule(ctx context.Context, id center.ModuleID) (out []center.Registration, err error) {
	m.read(func(t *tables) { out, err = t.ListRegistrationsByModule(ctx, id) })
	return
}

func (m *Memory) UpdateRegistration(ctx context.Context, r *center.Registration) error {
	return m.write(func(t *tables) error { return t.UpdateRegistration(ctx, r) })
}

func (m *Memory) DeleteRegistration(ctx context.Context, id center.RegistrationID) error {
	return m.write(func(t *tables) error { return t.DeleteRegistration(ctx, id) })
}

func (m *Memory) CreatePayment(ctx context.Context, p *center.Payment) error {
	return m.write(func(t *tables) error { return t.CreatePayment(ctx, p) })
}

func (m *Memory) GetPayment(ctx context.Context, id center.PaymentID) (p *center.Payment, err error) {
	m.read(func(t *tables) { p, err = t.GetPayment(ctx, id) })
	return
}

func (m *Memory) ListPayments(ctx context.Context) (out []center.Payment, err error) {
	m.read(func(t *tables) { out, err = t.ListPayments(ctx) })
	return
}

func (m *Memory) ListPaymentsByRegistration(ctx context.Context, id center.RegistrationID) (out []center.Payment, err error) {
	m.read(func(t *tables) { out, err = t.ListPaymentsByRegistration(ctx, id) })
	return
}

func (m *Memory) ListPaymentsByStudent(ctx context.Context, id center.StudentID) (out []center.Payment, err error) {
	m.read(func(t *tables) { out, err = t.ListPaymentsByStudent(ctx, id) })
	return
}

func (m *Memory) CountPaymentsByRegistration(ctx context.Context, id center.RegistrationID) (n int64, err error) {
	m.read(func(t *tables) { n, err = t.CountPaymentsByRegistration(ctx, id) })
	return
}

func (m *Memory) UpdatePayment(ctx context.Context, p *center.Payment) error {
	return m.write(func(t *tables) error { return t.UpdatePayment(ctx, p) })
}

func (m *Memory) DeletePayment(ctx context.Context, id center.PaymentID) error {
	return m.write(func(t *tables) error { return t.DeletePayment(ctx, id) })
}
