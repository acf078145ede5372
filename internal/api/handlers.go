package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
)

func createPsychologistHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePsychologistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := svc.RegisterPsychologist(r.Context(), req.Name, req.CommissionPercentage)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPsychologistResponse(*p))
	}
}

func listPsychologistsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListPsychologists(r.Context())
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]PsychologistResponse, 0, len(list))
		for _, p := range list {
			out = append(out, toPsychologistResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		psychologistID, err := uuid.Parse(req.PsychologistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "psychologist_id must be a valid UUID")
			return
		}

		appt, err := svc.RegisterAppointment(r.Context(), appointment.Appointment{
			PsychologistID: psychologistID,
			PatientName:    req.PatientName,
			Date:           req.Date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			Value:          req.Value,
			Status:         appointment.AppointmentStatus(req.Status),
			PaymentMethod:  appointment.PaymentMethod(req.PaymentMethod),
			InsuranceType:  req.InsuranceType,
			InsuranceToken: req.InsuranceToken,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseAppointmentFilter(w, r)
		if !ok {
			return
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

type appointmentAction func(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error)

func appointmentActionHandler(svc *appointment.Service, action appointmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := action(svc, r, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func confirmAppointment(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.Confirm(r.Context(), id)
}

func completeAppointment(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.Complete(r.Context(), id)
}

func cancelAppointment(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.Cancel(r.Context(), id)
}

func setInsuranceTokenHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_appointment_id")
		if !ok {
			return
		}

		var req InsuranceTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.SetInsuranceToken(r.Context(), id, req.Token)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func appointmentSummaryHandler(svc *appointment.Service, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		psychologistID, ok := parseOptionalUUID(w, r.URL.Query().Get("psychologist_id"), "invalid_psychologist_id")
		if !ok {
			return
		}

		period := appointment.Period(r.URL.Query().Get("period"))
		sum, err := svc.Summarize(r.Context(), period, psychologistID, now())
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, StatusSummaryResponse(sum))
	}
}

func parseAppointmentFilter(w http.ResponseWriter, r *http.Request) (appointment.Filter, bool) {
	q := r.URL.Query()

	psychologistID, ok := parseOptionalUUID(w, q.Get("psychologist_id"), "invalid_psychologist_id")
	if !ok {
		return appointment.Filter{}, false
	}

	f := appointment.Filter{
		PsychologistID: psychologistID,
		From:           q.Get("from"),
		To:             q.Get("to"),
		Status:         appointment.AppointmentStatus(q.Get("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown appointment status")
		return appointment.Filter{}, false
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(appointment.DateLayout, d); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from and to must be YYYY-MM-DD")
			return appointment.Filter{}, false
		}
	}
	return f, true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(w http.ResponseWriter, raw, code string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "must be a valid UUID")
		return nil, false
	}
	return &id, true
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrPsychologistNotFound):
		writeError(w, http.StatusNotFound, "psychologist_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidAppointment):
		writeError(w, http.StatusBadRequest, "invalid_appointment", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrInsuranceTokenRequired):
		writeError(w, http.StatusConflict, "insurance_token_required", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
