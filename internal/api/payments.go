package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/payment"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func eligibleAppointmentsHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseAppointmentFilter(w, r)
		if !ok {
			return
		}
		if filter.PsychologistID == nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "psychologist_id is required")
			return
		}

		list, err := ledger.EligibleAppointments(r.Context(), payment.EligibilityFilter{
			PsychologistID: *filter.PsychologistID,
			From:           filter.From,
			To:             filter.To,
		})
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func createBatchHandler(ledger *payment.Ledger, appts *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req CreateBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		psychologistID, err := uuid.Parse(req.PsychologistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "psychologist_id must be a valid UUID")
			return
		}

		selected := make([]appointment.Appointment, 0, len(req.AppointmentIDs))
		for _, raw := range req.AppointmentIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", fmt.Sprintf("%q is not a valid UUID", raw))
				return
			}
			a, err := appts.Get(r.Context(), id)
			if err != nil {
				handleAppointmentError(w, err)
				return
			}
			selected = append(selected, *a)
		}

		batch, err := ledger.CreateBatch(r.Context(), psychologistID, selected, actor)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		items, err := ledger.ItemsForBatch(r.Context(), batch.ID)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBatchResponse(*batch, items))
	}
}

func listBatchesHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		psychologistID, ok := parseOptionalUUID(w, r.URL.Query().Get("psychologist_id"), "invalid_psychologist_id")
		if !ok {
			return
		}

		var (
			list []payment.Batch
			err  error
		)
		if psychologistID != nil {
			list, err = ledger.BatchesForPsychologist(r.Context(), *psychologistID)
		} else {
			list, err = ledger.Batches(r.Context())
		}
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponses(list))
	}
}

func recentBatchesHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 5
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			limit = n
		}

		list, err := ledger.RecentBatches(r.Context(), limit)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponses(list))
	}
}

func getBatchHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_batch_id")
		if !ok {
			return
		}

		batch, err := ledger.Batch(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		items, err := ledger.ItemsForBatch(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponse(*batch, items))
	}
}

func approveBatchHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_batch_id")
		if !ok {
			return
		}

		batch, err := ledger.Approve(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponse(*batch, nil))
	}
}

func contestBatchHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_batch_id")
		if !ok {
			return
		}

		var req ContestBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			writeError(w, http.StatusBadRequest, "reason_required", "a contestation reason is required")
			return
		}

		batch, err := ledger.Contest(r.Context(), id, reason)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponse(*batch, nil))
	}
}

func payBatchHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_batch_id")
		if !ok {
			return
		}

		batch, err := ledger.MarkPaid(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponse(*batch, nil))
	}
}

func batchStatementHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_batch_id")
		if !ok {
			return
		}

		batch, err := ledger.Batch(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		items, err := ledger.ItemsForBatch(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		data, err := payment.BuildStatementXLSX(batch, items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "statement_failed", err.Error())
			return
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"statement-%s.xlsx\"", batch.ID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func dashboardHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := ledger.CurrentDashboard(r.Context())
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDashboardResponse(d))
	}
}

func refreshDashboardHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := ledger.RefreshDashboard(r.Context())
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDashboardResponse(d))
	}
}

func psychologistSummaryHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_psychologist_id")
		if !ok {
			return
		}

		sum, err := ledger.PsychologistSummary(r.Context(), id)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PsychologistSummaryResponse(sum))
	}
}

func financeSummaryHandler(ledger *payment.Ledger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		psychologistID, ok := parseOptionalUUID(w, r.URL.Query().Get("psychologist_id"), "invalid_psychologist_id")
		if !ok {
			return
		}

		f := appointment.Filter{PsychologistID: psychologistID}
		if period := r.URL.Query().Get("period"); period != "" {
			f.From, f.To = appointment.Period(period).Range(now())
		}

		sum, err := ledger.FinanceSummary(r.Context(), f)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toFinanceResponse(sum, f.From, f.To))
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, "batch_not_found", err.Error())
	case errors.Is(err, payment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, payment.ErrBatchStatusChanged):
		writeError(w, http.StatusConflict, "batch_status_changed", err.Error())
	case errors.Is(err, payment.ErrAppointmentAlreadyClaimed):
		writeError(w, http.StatusConflict, "appointment_already_claimed", err.Error())
	case errors.Is(err, payment.ErrBatchBeingCreated):
		writeError(w, http.StatusConflict, "batch_being_created", "a batch for this psychologist is being created, please retry shortly")
	case errors.Is(err, payment.ErrEmptyBatch),
		errors.Is(err, payment.ErrMixedPsychologists),
		errors.Is(err, payment.ErrDuplicateAppointment),
		errors.Is(err, payment.ErrAppointmentNotCompleted):
		writeError(w, http.StatusUnprocessableEntity, "invalid_batch", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
