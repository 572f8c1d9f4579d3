package center

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// CATALOG - Students, modules and read access to enrollments
// =============================================================================

// StudentPatch is a partial update; nil fields are left unchanged.
type StudentPatch struct {
	FullName    *string
	PhoneNumber *string
	Email       *string
	Address     *string
	Tutor       *string
	Status      *StudentStatus
}

// ModulePatch is a partial update; nil fields are left unchanged.
type ModulePatch struct {
	Name     *string
	Duration *int
	Price    *Money
	Status   *string
}

// StudentDetail is a student with everything that references it.
type StudentDetail struct {
	Student
	Registrations []Registration `json:"registrations"`
	Payments      []Payment      `json:"payments"`
}

// ModuleDetail is a module with its registrations.
type ModuleDetail struct {
	Module
	Registrations []Registration `json:"registrations"`
}

type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// -----------------------------------------------------------------------------
// Students
// -----------------------------------------------------------------------------

// CreateStudent stores s after checking that its email and phone number are
// not used by another student.
func (c *Catalog) CreateStudent(ctx context.Context, s Student) (*Student, error) {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Email = normalizeEmail(s.Email)
	s.Address = strings.TrimSpace(s.Address)
	s.Tutor = strings.TrimSpace(s.Tutor)
	if s.Status == "" {
		s.Status = StudentActive
	}
	if !s.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "must be ACTIVE or INACTIVE"}
	}
	if err := c.checkContact(ctx, s.Email, s.PhoneNumber, 0); err != nil {
		return nil, err
	}
	if err := c.store.CreateStudent(ctx, &s); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, &ConflictError{Entity: "student", Reason: "email or phone number already in use"}
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	return &s, nil
}

func (c *Catalog) UpdateStudent(ctx context.Context, id StudentID, patch StudentPatch) (*Student, error) {
	s, err := c.store.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if s == nil {
		return nil, notFound("student", int64(id))
	}

	if patch.FullName != nil {
		s.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.PhoneNumber != nil {
		s.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Email != nil {
		s.Email = normalizeEmail(*patch.Email)
	}
	if patch.Address != nil {
		s.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.Tutor != nil {
		s.Tutor = strings.TrimSpace(*patch.Tutor)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, &ValidationError{Field: "status", Message: "must be ACTIVE or INACTIVE"}
		}
		s.Status = *patch.Status
	}

	if patch.Email != nil || patch.PhoneNumber != nil {
		if err := c.checkContact(ctx, s.Email, s.PhoneNumber, id); err != nil {
			return nil, err
		}
	}
	if err := c.store.UpdateStudent(ctx, s); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, &ConflictError{Entity: "student", ID: int64(id), Reason: "email or phone number already in use"}
		}
		return nil, fmt.Errorf("update student: %w", err)
	}
	return s, nil
}

func (c *Catalog) GetStudent(ctx context.Context, id StudentID) (*StudentDetail, error) {
	s, err := c.store.GetStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if s == nil {
		return nil, notFound("student", int64(id))
	}
	regs, err := c.store.ListRegistrationsByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	payments, err := c.store.ListPaymentsByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &StudentDetail{Student: *s, Registrations: nonNil(regs), Payments: nonNil(payments)}, nil
}

func (c *Catalog) ListStudents(ctx context.Context) ([]Student, error) {
	students, err := c.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return nonNil(students), nil
}

// checkContact reports which of email or phone is already taken by a student
// other than exclude.
func (c *Catalog) checkContact(ctx context.Context, email, phone string, exclude StudentID) error {
	other, err := c.store.FindStudentByContact(ctx, email, phone, exclude)
	if err != nil {
		return fmt.Errorf("check student contact: %w", err)
	}
	if other == nil {
		return nil
	}
	field := "phone number"
	if strings.EqualFold(other.Email, email) {
		field = "email"
	}
	return &ConflictError{Entity: "student", Reason: field + " already in use"}
}

// -----------------------------------------------------------------------------
// Modules
// -----------------------------------------------------------------------------

func (c *Catalog) CreateModule(ctx context.Context, m Module) (*Module, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Status == "" {
		m.Status = ModuleActive
	}
	if err := validateModule(&m); err != nil {
		return nil, err
	}
	if err := c.store.CreateModule(ctx, &m); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return &m, nil
}

// UpdateModule changes module fields. Existing registrations keep the end
// date computed when they were created or last rescheduled.
func (c *Catalog) UpdateModule(ctx context.Context, id ModuleID, patch ModulePatch) (*Module, error) {
	m, err := c.store.GetModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if m == nil {
		return nil, notFound("module", int64(id))
	}
	if patch.Name != nil {
		m.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Duration != nil {
		m.Duration = *patch.Duration
	}
	if patch.Price != nil {
		m.Price = *patch.Price
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if err := validateModule(m); err != nil {
		return nil, err
	}
	if err := c.store.UpdateModule(ctx, m); err != nil {
		return nil, fmt.Errorf("update module: %w", err)
	}
	return m, nil
}

func (c *Catalog) GetModule(ctx context.Context, id ModuleID) (*ModuleDetail, error) {
	m, err := c.store.GetModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if m == nil {
		return nil, notFound("module", int64(id))
	}
	regs, err := c.store.ListRegistrationsByModule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return &ModuleDetail{Module: *m, Registrations: nonNil(regs)}, nil
}

func (c *Catalog) ListModules(ctx context.Context) ([]Module, error) {
	modules, err := c.store.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return nonNil(modules), nil
}

func validateModule(m *Module) error {
	if m.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if m.Duration < 1 {
		return &ValidationError{Field: "duration", Message: "must be at least 1 day"}
	}
	if m.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Registrations and payments (read side)
// -----------------------------------------------------------------------------

func (c *Catalog) GetRegistration(ctx context.Context, id RegistrationID) (*Registration, error) {
	reg, err := c.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg == nil {
		return nil, notFound("registration", int64(id))
	}
	return reg, nil
}

func (c *Catalog) ListRegistrations(ctx context.Context) ([]Registration, error) {
	regs, err := c.store.ListRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return nonNil(regs), nil
}

func (c *Catalog) ListPaymentsForRegistration(ctx context.Context, id RegistrationID) ([]Payment, error) {
	if _, err := c.GetRegistration(ctx, id); err != nil {
		return nil, err
	}
	payments, err := c.store.ListPaymentsByRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return nonNil(payments), nil
}

func (c *Catalog) GetPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	p, err := c.store.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if p == nil {
		return nil, notFound("payment", int64(id))
	}
	return p, nil
}

func (c *Catalog) ListPayments(ctx context.Context) ([]Payment, error) {
	payments, err := c.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return nonNil(payments), nil
}

// -----------------------------------------------------------------------------
// Listing views
// -----------------------------------------------------------------------------

// StudentSummary is the part of a student shown next to its enrollments.
type StudentSummary struct {
	ID       StudentID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

// ModuleSummary is the part of a module shown next to its enrollments.
type ModuleSummary struct {
	ID       ModuleID `json:"id"`
	Name     string   `json:"name"`
	Duration int      `json:"duration"`
	Price    Money    `json:"price"`
}

// RegistrationView is a registration with its student and module. Either is
// nil once the referenced record has been deleted.
type RegistrationView struct {
	Registration
	Student *StudentSummary `json:"student"`
	Module  *ModuleSummary  `json:"module"`
}

// PaymentView is a payment with the student and module it was made for.
type PaymentView struct {
	Payment
	Student *StudentSummary `json:"student"`
	Module  *ModuleSummary  `json:"module"`
}

func (c *Catalog) GetRegistrationView(ctx context.Context, id RegistrationID) (*RegistrationView, error) {
	reg, err := c.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := c.newSummaries().registration(ctx, *reg)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Catalog) ListRegistrationViews(ctx context.Context) ([]RegistrationView, error) {
	regs, err := c.ListRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	sums := c.newSummaries()
	out := make([]RegistrationView, len(regs))
	for i, reg := range regs {
		if out[i], err = sums.registration(ctx, reg); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Catalog) GetPaymentView(ctx context.Context, id PaymentID) (*PaymentView, error) {
	p, err := c.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := c.newSummaries().payment(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Catalog) ListPaymentViews(ctx context.Context) ([]PaymentView, error) {
	payments, err := c.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	sums := c.newSummaries()
	out := make([]PaymentView, len(payments))
	for i, p := range payments {
		if out[i], err = sums.payment(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// summaries loads each referenced student and module once per listing.
type summaries struct {
	store    Store
	students map[StudentID]*StudentSummary
	modules  map[ModuleID]*ModuleSummary
}

func (c *Catalog) newSummaries() *summaries {
	return &summaries{
		store:    c.store,
		students: make(map[StudentID]*StudentSummary),
		modules:  make(map[ModuleID]*ModuleSummary),
	}
}

func (s *summaries) registration(ctx context.Context, reg Registration) (RegistrationView, error) {
	student, module, err := s.lookup(ctx, reg.StudentID, reg.ModuleID)
	if err != nil {
		return RegistrationView{}, err
	}
	return RegistrationView{Registration: reg, Student: student, Module: module}, nil
}

func (s *summaries) payment(ctx context.Context, p Payment) (PaymentView, error) {
	student, module, err := s.lookup(ctx, p.StudentID, p.ModuleID)
	if err != nil {
		return PaymentView{}, err
	}
	return PaymentView{Payment: p, Student: student, Module: module}, nil
}

func (s *summaries) lookup(ctx context.Context, sid StudentID, mid ModuleID) (*StudentSummary, *ModuleSummary, error) {
	student, ok := s.students[sid]
	if !ok {
		st, err := s.store.GetStudent(ctx, sid)
		if err != nil {
			return nil, nil, fmt.Errorf("load student: %w", err)
		}
		if st != nil {
			student = &StudentSummary{ID: st.ID, FullName: st.FullName, Email: st.Email}
		}
		s.students[sid] = student
	}
	module, ok := s.modules[mid]
	if !ok {
		m, err := s.store.GetModule(ctx, mid)
		if err != nil {
			return nil, nil, fmt.Errorf("load module: %w", err)
		}
		if m != nil {
			module = &ModuleSummary{ID: m.ID, Name: m.Name, Duration: m.Duration, Price: m.Price}
		}
		s.modules[mid] = module
	}
	return student, module, nil
}

// normalizeEmail trims and lower-cases an address; emails compare
// case-insensitively everywhere.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// nonNil keeps empty lists as [] in JSON responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
