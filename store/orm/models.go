package orm

import (
	"strings"
	"time"

	"github.com/warp/training-center/center"
)

// =============================================================================
// TABLE MODELS
// =============================================================================
// Money columns hold integer cents. Emails are stored lower-cased, which makes
// the unique index on them case-insensitive. Registration and payment foreign keys are
// indexed but not declared as constraints: deleting a student or module that
// still has registrations is allowed.

type studentModel struct {
	ID          int64  `gorm:"primaryKey"`
	FullName    string `gorm:"size:50;not null"`
	PhoneNumber string `gorm:"size:20;not null;uniqueIndex"`
	Email       string `gorm:"size:255;not null;uniqueIndex"`
	Address     string `gorm:"size:100"`
	Tutor       string `gorm:"size:50"`
	Status      string `gorm:"size:16;not null;default:ACTIVE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (studentModel) TableName() string { return "students" }

type moduleModel struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"size:50;not null"`
	Duration   int    `gorm:"not null"`
	PriceCents int64  `gorm:"not null;default:0"`
	Status     string `gorm:"size:16;not null;default:ACTIVE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (moduleModel) TableName() string { return "modules" }

type registrationModel struct {
	ID           int64     `gorm:"primaryKey"`
	StudentID    int64     `gorm:"not null;index"`
	ModuleID     int64     `gorm:"not null;index"`
	DateRegister time.Time `gorm:"not null"`
	StartDate    time.Time `gorm:"not null"`
	EndDate      time.Time `gorm:"not null"`
	AmountCents  int64     `gorm:"not null"`
	RestCents    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (registrationModel) TableName() string { return "registrations" }

type paymentModel struct {
	ID             int64     `gorm:"primaryKey"`
	RegistrationID int64     `gorm:"not null;index"`
	ModuleID       int64     `gorm:"not null"`
	StudentID      int64     `gorm:"not null;index"`
	PaymentDate    time.Time `gorm:"not null"`
	AmountCents    int64     `gorm:"not null"`
	Payer          string    `gorm:"size:100;not null"`
	PayerNumber    string    `gorm:"size:20;not null"`
	PaymentMode    string    `gorm:"size:20;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (paymentModel) TableName() string { return "payments" }

// =============================================================================
// CONVERSIONS
// =============================================================================

func fromStudent(s *center.Student) studentModel {
	return studentModel{
		ID:          int64(s.ID),
		FullName:    s.FullName,
		PhoneNumber: s.PhoneNumber,
		Email:       strings.ToLower(s.Email),
		Address:     s.Address,
		Tutor:       s.Tutor,
		Status:      string(s.Status),
	}
}

func (m studentModel) toStudent() center.Student {
	return center.Student{
		ID:          center.StudentID(m.ID),
		FullName:    m.FullName,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
		Address:     m.Address,
		Tutor:       m.Tutor,
		Status:      center.StudentStatus(m.Status),
	}
}

func fromModule(m *center.Module) moduleModel {
	return moduleModel{
		ID:         int64(m.ID),
		Name:       m.Name,
		Duration:   m.Duration,
		PriceCents: m.Price.Cents(),
		Status:     m.Status,
	}
}

func (m moduleModel) toModule() center.Module {
	return center.Module{
		ID:       center.ModuleID(m.ID),
		Name:     m.Name,
		Duration: m.Duration,
		Price:    center.Money(m.PriceCents),
		Status:   m.Status,
	}
}

func fromRegistration(r *center.Registration) registrationModel {
	m := registrationModel{
		ID:           int64(r.ID),
		StudentID:    int64(r.StudentID),
		ModuleID:     int64(r.ModuleID),
		DateRegister: r.DateRegister.Time,
		StartDate:    r.StartDate.Time,
		EndDate:      r.EndDate.Time,
		AmountCents:  r.Amount.Cents(),
	}
	if r.RestValue != nil {
		cents := r.RestValue.Cents()
		m.RestCents = &cents
	}
	return m
}

func (m registrationModel) toRegistration() center.Registration {
	r := center.Registration{
		ID:           center.RegistrationID(m.ID),
		StudentID:    center.StudentID(m.StudentID),
		ModuleID:     center.ModuleID(m.ModuleID),
		DateRegister: dateOf(m.DateRegister),
		StartDate:    dateOf(m.StartDate),
		EndDate:      dateOf(m.EndDate),
		Amount:       center.Money(m.AmountCents),
	}
	if m.RestCents != nil {
		rest := center.Money(*m.RestCents)
		r.RestValue = &rest
	}
	return r
}

func fromPayment(p *center.Payment) paymentModel {
	return paymentModel{
		ID:             int64(p.ID),
		RegistrationID: int64(p.RegistrationID),
		ModuleID:       int64(p.ModuleID),
		StudentID:      int64(p.StudentID),
		PaymentDate:    p.PaymentDate.Time,
		AmountCents:    p.Amount.Cents(),
		Payer:          p.Payer,
		PayerNumber:    p.PayerNumber,
		PaymentMode:    string(p.PaymentMode),
	}
}

func (m paymentModel) toPayment() center.Payment {
	return center.Payment{
		ID:             center.PaymentID(m.ID),
		RegistrationID: center.RegistrationID(m.RegistrationID),
		ModuleID:       center.ModuleID(m.ModuleID),
		StudentID:      center.StudentID(m.StudentID),
		PaymentDate:    dateOf(m.PaymentDate),
		Amount:         center.Money(m.AmountCents),
		Payer:          m.Payer,
		PayerNumber:    m.PayerNumber,
		PaymentMode:    center.PaymentMode(m.PaymentMode),
	}
}

// dateOf reads dates back in UTC; PostgreSQL hands timestamptz values back in
// the session time zone.
func dateOf(t time.Time) center.Date {
	return center.DateOf(t.UTC())
}
