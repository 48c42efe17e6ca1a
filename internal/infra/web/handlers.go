package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/infra/metrics"
	"storefront-automation/internal/usecase"
)

// errorBody is the uniform error envelope. `code` is machine-readable;
// clients branch on it, never on the message text.
type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Reason  string       `json:"reason,omitempty"`
	Quota   *model.Quota `json:"quota,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func bearerMatches(header, key string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}
	return parts[1] == key
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ===== Session =====

type sessionRequest struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
}

// sessionHandler exchanges the dashboard key for an account-scoped session.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid session request")
		return
	}
	if s.serviceKey == "" || req.Key != s.serviceKey {
		writeError(w, http.StatusForbidden, "forbidden", "invalid dashboard key")
		return
	}
	token, err := s.auth.Mint(w, req.AccountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to mint session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ===== Catalog and quota =====

func (s *Server) plansHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalogUC.List(r.Context()))
}

func (s *Server) quotaHandler(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotaUC.Resolve(r.Context(), AccountID(r.Context()))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "failed to resolve quota")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// ===== Stores =====

func (s *Server) storesListHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.storeUC.Overview(r.Context(), AccountID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to list stores")
		return
	}
	if rows == nil {
		rows = []*model.StoreOverview{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type storeCreateRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Phone    string `json:"phone"`
}

func (s *Server) storeCreateHandler(w http.ResponseWriter, r *http.Request) {
	accountID := AccountID(r.Context())

	var req storeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid request body")
		return
	}

	store, err := s.storeUC.Create(r.Context(), accountID, req.Name, req.Category, req.Phone)
	if err != nil {
		var qe *usecase.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			metrics.IncQuotaDenial(domain.CodeQuotaExceeded)
			writeJSON(w, http.StatusConflict, errorBody{
				Code:    domain.CodeQuotaExceeded,
				Message: "store limit reached for the current plan",
				Quota:   qe.Quota,
			})
		case errors.Is(err, domain.ErrSubscriptionRequired):
			metrics.IncQuotaDenial(domain.CodeSubscriptionRequired)
			writeError(w, http.StatusConflict, domain.CodeSubscriptionRequired, "an active subscription is required to create stores")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "store name is required")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "failed to create store")
		}
		return
	}

	metrics.IncStoreCreated()
	writeJSON(w, http.StatusCreated, store)
}

func (s *Server) storeDeleteHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if !s.ownsStore(w, r, storeID) {
		return
	}

	if err := s.storeUC.Delete(r.Context(), storeID); err != nil {
		var blocked *domain.DeletionBlockedError
		switch {
		case errors.As(err, &blocked):
			writeJSON(w, http.StatusConflict, errorBody{
				Code:    domain.CodeDeletionBlocked,
				Message: "store cannot be deleted right now",
				Reason:  blocked.Reason,
			})
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "store not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "failed to delete store")
		}
		return
	}

	metrics.IncStoreDeleted()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) automationResetHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if !s.ownsStore(w, r, storeID) {
		return
	}

	if err := s.autoUC.ResetError(r.Context(), storeID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "store not found")
		case errors.Is(err, domain.ErrNotProvisioned):
			writeError(w, http.StatusConflict, domain.CodeInvalidArgument, "automation is not provisioned for this store")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusConflict, domain.CodeInvalidArgument, "automation is not in the error state")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "failed to reset automation")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(model.AutomationStateWaiting)})
}

// ownsStore rejects cross-account access before any store operation.
func (s *Server) ownsStore(w http.ResponseWriter, r *http.Request, storeID string) bool {
	store, err := s.storeUC.Get(r.Context(), storeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "store not found")
		} else {
			writeError(w, http.StatusInternalServerError, "internal", "failed to load store")
		}
		return false
	}
	if store.AccountID != AccountID(r.Context()) {
		// 404, not 403: do not confirm the store exists.
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "store not found")
		return false
	}
	return true
}

// ===== Checkout =====

func (s *Server) checkoutStartHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid request body")
		return
	}
	intent, err := model.DecodeCheckoutIntent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.Code(err), err.Error())
		return
	}

	p, payURL, err := s.checkoutUC.Start(r.Context(), AccountID(r.Context()), intent)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubscriptionRequired):
			writeError(w, http.StatusConflict, domain.CodeSubscriptionRequired, "an active subscription is required to buy extra stores")
		case errors.Is(err, domain.ErrUnknownPlan):
			writeError(w, http.StatusBadRequest, domain.CodeUnknownPlan, "unknown plan")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "store not found")
		default:
			writeError(w, http.StatusBadGateway, "checkout_unavailable", "failed to start checkout")
		}
		return
	}

	metrics.IncPayment(string(p.Status))
	writeJSON(w, http.StatusCreated, map[string]string{
		"paymentId": p.ID,
		"payUrl":    payURL,
	})
}

func (s *Server) checkoutCallbackHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "session_id is required")
		return
	}

	p, err := s.checkoutUC.Confirm(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, domain.CodeNotFound, "unknown checkout session")
			return
		}
		status := string(model.PaymentStatusFailed)
		if p != nil {
			status = string(p.Status)
		}
		metrics.IncPayment(status)
		writeJSON(w, http.StatusPaymentRequired, errorBody{Code: "payment_failed", Message: "payment verification failed"})
		return
	}

	metrics.IncPayment(string(p.Status))
	writeJSON(w, http.StatusOK, map[string]string{
		"paymentId": p.ID,
		"status":    string(p.Status),
	})
}

// ===== Executor run callbacks =====

func (s *Server) runCompleteHandler(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.autoUC.RecordSuccessByRun(r.Context(), runID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to record run result")
		return
	}
	metrics.IncAutomationRun("succeeded")
	w.WriteHeader(http.StatusNoContent)
}

type runFailRequest struct {
	Recoverable bool `json:"recoverable"`
}

func (s *Server) runFailHandler(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	var req runFailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid request body")
		return
	}
	if err := s.autoUC.RecordFailureByRun(r.Context(), runID, req.Recoverable); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to record run result")
		return
	}
	if req.Recoverable {
		metrics.IncAutomationRun("retrying")
	} else {
		metrics.IncAutomationRun("error")
	}
	w.WriteHeader(http.StatusNoContent)
}
