/*
handlers.go - HTTP API handlers for the training center

PURPOSE:
  Exposes the enrollment core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the center package.

ENDPOINTS:
  Students:
    GET    /api/students                      List students
    POST   /api/students                      Create student
    GET    /api/students/{id}                 Student with registrations and payments
    PUT    /api/students/{id}                 Partial update
    DELETE /api/students/{id}                 Delete

  Modules:
    GET    /api/modules                       List modules
    POST   /api/modules                       Create module
    GET    /api/modules/{id}                  Module with registrations
    PUT    /api/modules/{id}                  Partial update
    DELETE /api/modules/{id}                  Delete

  Registrations:
    GET    /api/registrations                 List registrations
    POST   /api/registrations                 Enroll a student
    GET    /api/registrations/{id}            Registration
    GET    /api/registrations/{id}/balance    Amount, paid, rest
    GET    /api/registrations/{id}/payments   Payments on the registration
    PUT    /api/registrations/{id}            Partial update
    DELETE /api/registrations/{id}            Delete (refused while paid into)

  Payments:
    GET    /api/payments                      List payments
    POST   /api/payments                      Apply a payment
    GET    /api/payments/{paymentId}          Payment
    PUT    /api/payments/{paymentId}          Edit a payment
    DELETE /api/payments/{paymentId}          Delete and credit back

REQUEST FLOW:
  1. Parse path parameters and body (validate.go)
  2. Call the catalog, builder, ledger or guard
  3. Serialize response
  4. Map errors to statuses (errors.go)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"net/http"

	"github.com/warp/training-center/center"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	catalog *center.Catalog
	builder *center.Builder
	ledger  *center.Ledger
	guard   *center.Guard
	pinger  Pinger
}

// NewHandler wires the center services over store. If store implements
// Pinger, /healthz checks it.
func NewHandler(store center.TxStore) *Handler {
	ledger := center.NewLedger(store)
	h := &Handler{
		catalog: center.NewCatalog(store),
		builder: center.NewBuilder(store),
		ledger:  ledger,
		guard:   center.NewGuard(store, ledger),
	}
	if p, ok := store.(Pinger); ok {
		h.pinger = p
	}
	return h
}

// Health reports whether the store is reachable.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.catalog.ListStudents(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !decode(w, r, &req) {
		return
	}
	student, err := h.catalog.CreateStudent(r.Context(), req.toStudent())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.catalog.GetStudent(r.Context(), center.StudentID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStudentRequest
	if !decode(w, r, &req) {
		return
	}
	student, err := h.catalog.UpdateStudent(r.Context(), center.StudentID(id), req.toPatch())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	student, err := h.guard.DeleteStudent(r.Context(), center.StudentID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// =============================================================================
// MODULE HANDLERS
// =============================================================================

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.catalog.ListModules(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	var req CreateModuleRequest
	if !decode(w, r, &req) {
		return
	}
	module, err := h.catalog.CreateModule(r.Context(), center.Module{
		Name:     req.Name,
		Duration: req.Duration,
		Price:    req.Price,
		Status:   req.Status,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, module)
}

func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.catalog.GetModule(r.Context(), center.ModuleID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateModuleRequest
	if !decode(w, r, &req) {
		return
	}
	module, err := h.catalog.UpdateModule(r.Context(), center.ModuleID(id), center.ModulePatch{
		Name:     req.Name,
		Duration: req.Duration,
		Price:    req.Price,
		Status:   req.Status,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, module)
}

func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	module, err := h.guard.DeleteModule(r.Context(), center.ModuleID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, module)
}

// =============================================================================
// REGISTRATION HANDLERS
// =============================================================================

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.catalog.ListRegistrationViews(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *Handler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req CreateRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	reg, err := h.builder.CreateRegistration(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reg, err := h.catalog.GetRegistrationView(r.Context(), center.RegistrationID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// GetBalance returns the amount, paid total and rest of a registration.
// GET /api/registrations/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	balance, err := h.ledger.Balance(r.Context(), center.RegistrationID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handler) ListRegistrationPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.catalog.ListPaymentsForRegistration(r.Context(), center.RegistrationID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	reg, err := h.builder.UpdateRegistration(r.Context(), center.RegistrationID(id), req.toPatch())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// DeleteRegistration returns the deleted registration.
// DELETE /api/registrations/{id}
func (h *Handler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reg, err := h.guard.DeleteRegistration(r.Context(), center.RegistrationID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.catalog.ListPaymentViews(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// CreatePayment applies a payment and lowers the registration's rest.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RegistrationID == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Fields: map[string]string{"registrationId": "is required"},
		})
		return
	}
	payment, err := h.ledger.ApplyPayment(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}
	payment, err := h.catalog.GetPaymentView(r.Context(), center.PaymentID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// UpdatePayment edits a payment and moves the rest by the difference.
// PUT /api/payments/{paymentId}
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	payment, err := h.ledger.EditPayment(r.Context(), center.PaymentID(id), req.toInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}
	payment, err := h.guard.DeletePayment(r.Context(), center.PaymentID(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
