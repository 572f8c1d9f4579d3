/*
Package center implements the enrollment and payment core of the training
center backend.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student, Module: the catalog
  - Registration: a student's enrollment in one module with an agreed
    amount and a remaining balance (rest)
  - Payment: money received against one registration

DESIGN PRINCIPLES:
  1. Precision: amounts are Money (integer cents), never floats
  2. Type Safety: distinct ID types so a module ID can't be passed as a
     student ID
  3. Single fallback: Registration.Rest() is the only place that resolves
     an unset rest to the full amount

SEE ALSO:
  - builder.go: registration creation and update
  - ledger.go: payment application and balance tracking
  - guard.go: deletion rules
*/
package center

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID int64
type ModuleID int64
type RegistrationID int64
type PaymentID int64

// =============================================================================
// STUDENT
// =============================================================================

type StudentStatus string

const (
	StudentActive   StudentStatus = "ACTIVE"
	StudentInactive StudentStatus = "INACTIVE"
)

func (s StudentStatus) Valid() bool {
	return s == StudentActive || s == StudentInactive
}

type Student struct {
	ID          StudentID     `json:"id"`
	FullName    string        `json:"fullName"`
	PhoneNumber string        `json:"phoneNumber"`
	Email       string        `json:"email"`
	Address     string        `json:"address,omitempty"`
	Tutor       string        `json:"tutor,omitempty"`
	Status      StudentStatus `json:"status"`
}

// =============================================================================
// MODULE
// =============================================================================

const ModuleActive = "ACTIVE"

type Module struct {
	ID       ModuleID `json:"id"`
	Name     string   `json:"name"`
	Duration int      `json:"duration"` // days
	Price    Money    `json:"price"`
	Status   string   `json:"status"`
}

// =============================================================================
// REGISTRATION
// =============================================================================

type Registration struct {
	ID           RegistrationID `json:"id"`
	StudentID    StudentID      `json:"studentId"`
	ModuleID     ModuleID       `json:"moduleId"`
	DateRegister Date           `json:"dateRegister"`
	StartDate    Date           `json:"startDate"`
	EndDate      Date           `json:"endDate"`
	Amount       Money          `json:"amount"`

	// RestValue is nil until the first payment touches the registration.
	// Read it through Rest().
	RestValue *Money `json:"rest"`
}

// Rest returns the remaining balance. An unset rest means nothing has been
// paid yet, so the whole amount is outstanding.
func (r *Registration) Rest() Money {
	if r.RestValue == nil {
		return r.Amount
	}
	return *r.RestValue
}

// Paid returns how much has been paid so far.
func (r *Registration) Paid() Money {
	return r.Amount - r.Rest()
}

func (r *Registration) setRest(m Money) {
	r.RestValue = &m
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentMode string

const (
	PaymentCash         PaymentMode = "CASH"
	PaymentCard         PaymentMode = "CARD"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer:
		return true
	}
	return false
}

type Payment struct {
	ID             PaymentID      `json:"id"`
	RegistrationID RegistrationID `json:"registrationId"`
	ModuleID       ModuleID       `json:"moduleId"`
	StudentID      StudentID      `json:"studentId"`
	PaymentDate    Date           `json:"paymentDate"`
	Amount         Money          `json:"amount"`
	Payer          string         `json:"payer"`
	PayerNumber    string         `json:"payerNumber"`
	PaymentMode    PaymentMode    `json:"paymentMode"`
}

// Balance is the read model of a registration's financial state.
type Balance struct {
	RegistrationID RegistrationID `json:"registrationId"`
	Amount         Money          `json:"amount"`
	Paid           Money          `json:"paid"`
	Rest           Money          `json:"rest"`
	Payments       int            `json:"payments"`
}
