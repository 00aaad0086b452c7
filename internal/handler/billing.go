package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/danaru/lending-engine/internal/domain"
	"github.com/danaru/lending-engine/internal/service"
	"github.com/danaru/lending-engine/pkg/render"
	"github.com/danaru/lending-engine/pkg/response"
	"github.com/danaru/lending-engine/pkg/utils"
)

type BillingHandler struct {
	service   *service.BillingService
	validator *validator.Validate
}

func NewBillingHandler(service *service.BillingService) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /loans
func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid loan request", err)
		return
	}

	// Start date may arrive as epoch seconds, RFC3339 or a bare date;
	// normalize here so nothing downstream sees a raw shape.
	startDate := time.Now().Truncate(24 * time.Hour)
	if req.StartDate != nil {
		parsed, err := utils.ParseFlexTime(req.StartDate)
		if err != nil {
			response.BadRequest(w, "invalid start_date", err)
			return
		}
		startDate = parsed
	}

	loan, schedule, err := h.service.CreateLoan(r.Context(), &req, startDate)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.CreateLoanResponse{Loan: loan, Schedule: schedule})
}

// AcceptLoan handles POST /loans/{loanId}/accept
func (h *BillingHandler) AcceptLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.AcceptLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, loan)
}

// DeclineLoan handles POST /loans/{loanId}/decline
func (h *BillingHandler) DeclineLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.DeclineLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, loan)
}

// CancelLoan handles POST /loans/{loanId}/cancel
func (h *BillingHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.CancelLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, loan)
}

// GetSchedule handles GET /loans/{loanId}/schedule. With ?format=text the
// schedule is rendered as a printable table instead of JSON.
func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]
	loan, schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(render.ScheduleText(loan, schedule)))
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: schedule})
}

// GetOutstanding handles GET /loans/{loanId}/outstanding
func (h *BillingHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetOutstanding(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, resp)
}

// SubmitPayment handles POST /loans/{loanId}/payments
func (h *BillingHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid payment request", err)
		return
	}

	submittedAt := time.Now()
	if req.SubmittedAt != nil {
		parsed, err := utils.ParseFlexTime(req.SubmittedAt)
		if err != nil {
			response.BadRequest(w, "invalid submitted_at", err)
			return
		}
		submittedAt = parsed
	}

	payment, err := h.service.SubmitPayment(r.Context(), mux.Vars(r)["loanId"], PartyFrom(r.Context()), req.Amount, req.Mode, req.Reference, submittedAt)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, payment)
}

// ApprovePayment handles POST /payments/{paymentId}/approve
func (h *BillingHandler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	payment, loan, err := h.service.ApprovePayment(r.Context(), paymentID, PartyFrom(r.Context()))
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{"payment": payment, "loan": loan})
}

// RejectPayment handles POST /payments/{paymentId}/reject
func (h *BillingHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	var req domain.RejectPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	payment, err := h.service.RejectPayment(r.Context(), paymentID, PartyFrom(r.Context()), req.Reason)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, payment)
}
