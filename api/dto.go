/*
dto.go - Request bodies for the REST API

PURPOSE:
  Defines the JSON structures clients send. Responses are the center types
  themselves (Student, Module, Registration, Payment, Balance), which
  already carry camelCase JSON tags.

NAMING CONVENTION:
  - Create*Request: POST bodies, required fields enforced
  - Update*Request: PUT bodies, every field optional (pointer); absent
    fields are left unchanged

VALIDATION:
  Syntactic checks (length, format, enum membership) are struct tags run
  by validate.go before any handler logic. Referential existence, dates
  and balance rules are checked again by the center package.

SEE ALSO:
  - validate.go: validator setup and error messages
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/training-center/center"

// =============================================================================
// STUDENTS
// =============================================================================

type CreateStudentRequest struct {
	FullName    string `json:"fullName" validate:"required,min=3,max=50,fullname"`
	PhoneNumber string `json:"phoneNumber" validate:"required,numeric,len=8"`
	Email       string `json:"email" validate:"required,email"`
	Address     string `json:"address" validate:"omitempty,max=100"`
	Tutor       string `json:"tutor" validate:"omitempty,max=50"`
	Status      string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r CreateStudentRequest) toStudent() center.Student {
	return center.Student{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Address:     r.Address,
		Tutor:       r.Tutor,
		Status:      center.StudentStatus(r.Status),
	}
}

type UpdateStudentRequest struct {
	FullName    *string `json:"fullName" validate:"omitempty,min=3,max=50,fullname"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,numeric,len=8"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Address     *string `json:"address" validate:"omitempty,max=100"`
	Tutor       *string `json:"tutor" validate:"omitempty,max=50"`
	Status      *string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r UpdateStudentRequest) toPatch() center.StudentPatch {
	p := center.StudentPatch{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Address:     r.Address,
		Tutor:       r.Tutor,
	}
	if r.Status != nil {
		s := center.StudentStatus(*r.Status)
		p.Status = &s
	}
	return p
}

// =============================================================================
// MODULES
// =============================================================================

type CreateModuleRequest struct {
	Name     string       `json:"name" validate:"required,min=3,max=50"`
	Duration int          `json:"duration" validate:"required,min=1"`
	Price    center.Money `json:"price" validate:"gte=0"`
	Status   string       `json:"status" validate:"omitempty,max=16"`
}

type UpdateModuleRequest struct {
	Name     *string       `json:"name" validate:"omitempty,min=3,max=50"`
	Duration *int          `json:"duration" validate:"omitempty,min=1"`
	Price    *center.Money `json:"price" validate:"omitempty,gte=0"`
	Status   *string       `json:"status" validate:"omitempty,max=16"`
}

// =============================================================================
// REGISTRATIONS
// =============================================================================

// Dates are left to the center package so that a missing or malformed date
// is reported as an invalid date rather than a generic validation failure.
type CreateRegistrationRequest struct {
	StudentID    int64        `json:"studentId" validate:"required,gt=0"`
	ModuleID     int64        `json:"moduleId" validate:"required,gt=0"`
	DateRegister string       `json:"dateRegister"`
	StartDate    string       `json:"startDate"`
	Amount       center.Money `json:"amount" validate:"gt=0"`
}

func (r CreateRegistrationRequest) toInput() center.RegistrationInput {
	return center.RegistrationInput{
		StudentID:    center.StudentID(r.StudentID),
		ModuleID:     center.ModuleID(r.ModuleID),
		DateRegister: r.DateRegister,
		StartDate:    r.StartDate,
		Amount:       r.Amount,
	}
}

type UpdateRegistrationRequest struct {
	StudentID    *int64        `json:"studentId" validate:"omitempty,gt=0"`
	ModuleID     *int64        `json:"moduleId" validate:"omitempty,gt=0"`
	DateRegister *string       `json:"dateRegister"`
	StartDate    *string       `json:"startDate"`
	Amount       *center.Money `json:"amount" validate:"omitempty,gt=0"`
}

func (r UpdateRegistrationRequest) toPatch() center.RegistrationPatch {
	p := center.RegistrationPatch{
		DateRegister: r.DateRegister,
		StartDate:    r.StartDate,
		Amount:       r.Amount,
	}
	if r.StudentID != nil {
		id := center.StudentID(*r.StudentID)
		p.StudentID = &id
	}
	if r.ModuleID != nil {
		id := center.ModuleID(*r.ModuleID)
		p.ModuleID = &id
	}
	return p
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentRequest is used for both create and edit; an edit replaces every
// field of the payment. On edit registrationId may be omitted.
type PaymentRequest struct {
	RegistrationID int64        `json:"registrationId" validate:"omitempty,gt=0"`
	ModuleID       int64        `json:"moduleId" validate:"omitempty,gt=0"`
	StudentID      int64        `json:"studentId" validate:"omitempty,gt=0"`
	PaymentDate    string       `json:"paymentDate"`
	Amount         center.Money `json:"amount" validate:"gt=0"`
	Payer          string       `json:"payer" validate:"required,max=100"`
	PayerNumber    string       `json:"payerNumber" validate:"required,numeric,max=20"`
	PaymentMode    string       `json:"paymentMode" validate:"required,oneof=CASH CARD BANK_TRANSFER"`
}

func (r PaymentRequest) toInput() center.PaymentInput {
	return center.PaymentInput{
		RegistrationID: center.RegistrationID(r.RegistrationID),
		ModuleID:       center.ModuleID(r.ModuleID),
		StudentID:      center.StudentID(r.StudentID),
		PaymentDate:    r.PaymentDate,
		Amount:         r.Amount,
		Payer:          r.Payer,
		PayerNumber:    r.PayerNumber,
		PaymentMode:    center.PaymentMode(r.PaymentMode),
	}
}

// =============================================================================
// RESPONSES
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
