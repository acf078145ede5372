package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/payment"
)

type CreatePsychologistRequest struct {
	Name                 string          `json:"name"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
}

type PsychologistResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CreatedAt            time.Time       `json:"created_at"`
}

type CreateAppointmentRequest struct {
	PsychologistID string          `json:"psychologist_id"`
	PatientName    string          `json:"patient_name"`
	Date           string          `json:"date"`
	StartTime      string          `json:"start_time"`
	EndTime        string          `json:"end_time"`
	Value          decimal.Decimal `json:"value"`
	Status         string          `json:"status,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	InsuranceType  *string         `json:"insurance_type,omitempty"`
	InsuranceToken *string         `json:"insurance_token,omitempty"`
}

type InsuranceTokenRequest struct {
	Token string `json:"token"`
}

type AppointmentResponse struct {
	ID               uuid.UUID       `json:"id"`
	PsychologistID   uuid.UUID       `json:"psychologist_id"`
	PsychologistName string          `json:"psychologist_name"`
	PatientName      string          `json:"patient_name"`
	Date             string          `json:"date"`
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	Value            decimal.Decimal `json:"value"`
	Status           string          `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	InsuranceType    *string         `json:"insurance_type,omitempty"`
	InsuranceToken   *string         `json:"insurance_token,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type StatusSummaryResponse struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Pending   int    `json:"pending"`
	Confirmed int    `json:"confirmed"`
	Cancelled int    `json:"cancelled"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type CreateBatchRequest struct {
	PsychologistID string   `json:"psychologist_id"`
	AppointmentIDs []string `json:"appointment_ids"`
}

type ContestBatchRequest struct {
	Reason string `json:"reason"`
}

type BatchResponse struct {
	ID                 uuid.UUID       `json:"id"`
	PsychologistID     uuid.UUID       `json:"psychologist_id"`
	PsychologistName   string          `json:"psychologist_name"`
	CreatedBy          string          `json:"created_by"`
	CreatedByName      string          `json:"created_by_name"`
	CreatedAt          time.Time       `json:"created_at"`
	TotalGrossValue    decimal.Decimal `json:"total_gross_value"`
	TotalNetValue      decimal.Decimal `json:"total_net_value"`
	Status             string          `json:"status"`
	ContestationReason *string         `json:"contestation_reason,omitempty"`
	ContestedAt        *time.Time      `json:"contested_at,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	AppointmentIDs     []uuid.UUID     `json:"appointment_ids"`
	Items              []ItemResponse  `json:"items,omitempty"`
}

type ItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	AppointmentID        uuid.UUID       `json:"appointment_id"`
	AppointmentDate      string          `json:"appointment_date"`
	PatientName          string          `json:"patient_name"`
	GrossValue           decimal.Decimal `json:"gross_value"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	NetValue             decimal.Decimal `json:"net_value"`
}

type DashboardResponse struct {
	TotalPendingPayments   int                           `json:"total_pending_payments"`
	TotalApprovedPayments  int                           `json:"total_approved_payments"`
	TotalContestedPayments int                           `json:"total_contested_payments"`
	TotalPaidAmount        decimal.Decimal               `json:"total_paid_amount"`
	MonthlyPayments        []MonthlyPaymentResponse      `json:"monthly_payments"`
	PsychologistPayments   []PsychologistPaymentResponse `json:"psychologist_payments"`
}

type MonthlyPaymentResponse struct {
	Month        string          `json:"month"`
	Psychologist string          `json:"psychologist"`
	Amount       decimal.Decimal `json:"amount"`
}

type PsychologistPaymentResponse struct {
	PsychologistName string          `json:"psychologist_name"`
	TotalPending     decimal.Decimal `json:"total_pending"`
	TotalApproved    decimal.Decimal `json:"total_approved"`
	TotalContested   decimal.Decimal `json:"total_contested"`
}

type PsychologistSummaryResponse struct {
	PsychologistID uuid.UUID       `json:"psychologist_id"`
	Batches        int             `json:"batches"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalApproved  decimal.Decimal `json:"total_approved"`
	TotalContested decimal.Decimal `json:"total_contested"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
}

type FinanceSummaryResponse struct {
	From                   string               `json:"from,omitempty"`
	To                     string               `json:"to,omitempty"`
	Appointments           int                  `json:"appointments"`
	TotalRevenue           decimal.Decimal      `json:"total_revenue"`
	PsychologistCommission decimal.Decimal      `json:"psychologist_commission"`
	ClinicRevenue          decimal.Decimal      `json:"clinic_revenue"`
	ByPsychologist         []FinanceRowResponse `json:"by_psychologist"`
}

type FinanceRowResponse struct {
	PsychologistID       uuid.UUID       `json:"psychologist_id"`
	PsychologistName     string          `json:"psychologist_name"`
	Appointments         int             `json:"appointments"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	Revenue              decimal.Decimal `json:"revenue"`
	Commission           decimal.Decimal `json:"commission"`
	ClinicRevenue        decimal.Decimal `json:"clinic_revenue"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toPsychologistResponse(p appointment.Psychologist) PsychologistResponse {
	return PsychologistResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		CommissionPercentage: p.CommissionPercentage,
		CreatedAt:            p.CreatedAt,
	}
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		PsychologistID:   a.PsychologistID,
		PsychologistName: a.PsychologistName,
		PatientName:      a.PatientName,
		Date:             a.Date,
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		Value:            a.Value,
		Status:           string(a.Status),
		PaymentMethod:    string(a.PaymentMethod),
		InsuranceType:    a.InsuranceType,
		InsuranceToken:   a.InsuranceToken,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toAppointmentResponses(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toBatchResponse(b payment.Batch, items []payment.Item) BatchResponse {
	resp := BatchResponse{
		ID:                 b.ID,
		PsychologistID:     b.PsychologistID,
		PsychologistName:   b.PsychologistName,
		CreatedBy:          b.CreatedBy,
		CreatedByName:      b.CreatedByName,
		CreatedAt:          b.CreatedAt,
		TotalGrossValue:    b.TotalGrossValue,
		TotalNetValue:      b.TotalNetValue,
		Status:             string(b.Status),
		ContestationReason: b.ContestationReason,
		ContestedAt:        b.ContestedAt,
		ApprovedAt:         b.ApprovedAt,
		PaidAt:             b.PaidAt,
		AppointmentIDs:     b.AppointmentIDs,
	}
	if resp.AppointmentIDs == nil {
		resp.AppointmentIDs = []uuid.UUID{}
	}
	for _, it := range items {
		resp.Items = append(resp.Items, ItemResponse{
			ID:                   it.ID,
			AppointmentID:        it.AppointmentID,
			AppointmentDate:      it.AppointmentDate,
			PatientName:          it.PatientName,
			GrossValue:           it.GrossValue,
			CommissionPercentage: it.CommissionPercentage,
			NetValue:             it.NetValue,
		})
	}
	return resp
}

func toBatchResponses(list []payment.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBatchResponse(b, nil))
	}
	return out
}

func toDashboardResponse(d payment.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		TotalPendingPayments:   d.TotalPendingPayments,
		TotalApprovedPayments:  d.TotalApprovedPayments,
		TotalContestedPayments: d.TotalContestedPayments,
		TotalPaidAmount:        d.TotalPaidAmount,
		MonthlyPayments:        make([]MonthlyPaymentResponse, 0, len(d.MonthlyPayments)),
		PsychologistPayments:   make([]PsychologistPaymentResponse, 0, len(d.PsychologistPayments)),
	}
	for _, m := range d.MonthlyPayments {
		resp.MonthlyPayments = append(resp.MonthlyPayments, MonthlyPaymentResponse(m))
	}
	for _, p := range d.PsychologistPayments {
		resp.PsychologistPayments = append(resp.PsychologistPayments, PsychologistPaymentResponse(p))
	}
	return resp
}

func toFinanceResponse(f payment.FinanceSummary, from, to string) FinanceSummaryResponse {
	resp := FinanceSummaryResponse{
		From:                   from,
		To:                     to,
		Appointments:           f.Appointments,
		TotalRevenue:           f.TotalRevenue,
		PsychologistCommission: f.PsychologistCommission,
		ClinicRevenue:          f.ClinicRevenue,
		ByPsychologist:         make([]FinanceRowResponse, 0, len(f.ByPsychologist)),
	}
	for _, row := range f.ByPsychologist {
		resp.ByPsychologist = append(resp.ByPsychologist, FinanceRowResponse(row))
	}
	return resp
}
