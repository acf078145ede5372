package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-payment-ledger/internal/appointment"
	"github.com/hackgods/clinic-payment-ledger/internal/payment"
	redisclient "github.com/hackgods/clinic-payment-ledger/internal/redis"
)

var testNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	appts   *appointment.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	appts := appointment.NewService(appointment.NewMemoryRepository(), decimal.NewFromInt(50))
	ledger := payment.NewLedger(
		payment.NewMemoryRepository(),
		appts,
		appts,
		redisclient.NewLocalLocker(),
		payment.LogNotifier{},
		payment.Options{StrictTransitions: true, Now: func() time.Time { return testNow }},
	)
	return &testServer{
		handler: NewRouter(RouterConfig{
			Appointments: appts,
			Ledger:       ledger,
			Env:          "test",
			Version:      "test",
			CORSOrigins:  []string{"*"},
			Now:          func() time.Time { return testNow },
		}),
		appts: appts,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, withActor bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if withActor {
		req.Header.Set("X-User-ID", "admin-1")
		req.Header.Set("X-User-Name", "Clinic Admin")
		req.Header.Set("X-User-Role", "admin")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// seedCompleted registers a psychologist with the given commission and one
// completed appointment per value.
func (s *testServer) seedCompleted(t *testing.T, commission int64, values ...int64) (PsychologistResponse, []AppointmentResponse) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/psychologists", CreatePsychologistRequest{
		Name:                 "Dr. Silva",
		CommissionPercentage: decimal.NewFromInt(commission),
	}, false)
	expectStatus(t, rec, http.StatusCreated)
	psych := decode[PsychologistResponse](t, rec)

	var out []AppointmentResponse
	for _, v := range values {
		rec := s.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
			PsychologistID: psych.ID.String(),
			PatientName:    "Ana Souza",
			Date:           "2026-10-14",
			StartTime:      "14:00",
			EndTime:        "14:50",
			Value:          decimal.NewFromInt(v),
			PaymentMethod:  string(appointment.PaymentPrivate),
		}, false)
		expectStatus(t, rec, http.StatusCreated)
		a := decode[AppointmentResponse](t, rec)

		rec = s.do(t, http.MethodPost, "/appointments/"+a.ID.String()+"/complete", nil, false)
		expectStatus(t, rec, http.StatusOK)
		out = append(out, decode[AppointmentResponse](t, rec))
	}
	return psych, out
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health/live", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if resp := decode[LivenessResponse](t, rec); resp.Status != "ok" {
		t.Fatalf("unexpected liveness: %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestHealthReadyWithoutDependencies(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health/ready", nil, false)
	expectStatus(t, rec, http.StatusOK)
	resp := decode[ReadinessResponse](t, rec)
	if resp.Dependencies["postgres"] != "disabled" || resp.Dependencies["redis"] != "disabled" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestPaymentBatchLifecycle(t *testing.T) {
	s := newTestServer(t)
	psych, appts := s.seedCompleted(t, 50, 100, 200)

	rec := s.do(t, http.MethodGet, "/payments/eligible?psychologist_id="+psych.ID.String(), nil, false)
	expectStatus(t, rec, http.StatusOK)
	if eligible := decode[[]AppointmentResponse](t, rec); len(eligible) != 2 {
		t.Fatalf("expected 2 eligible appointments, got %d", len(eligible))
	}

	create := CreateBatchRequest{
		PsychologistID: psych.ID.String(),
		AppointmentIDs: []string{appts[0].ID.String(), appts[1].ID.String()},
	}
	rec = s.do(t, http.MethodPost, "/payments/batches", create, false)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(t, http.MethodPost, "/payments/batches", create, true)
	expectStatus(t, rec, http.StatusCreated)
	batch := decode[BatchResponse](t, rec)
	if !batch.TotalGrossValue.Equal(decimal.NewFromInt(300)) || !batch.TotalNetValue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected totals: gross=%s net=%s", batch.TotalGrossValue, batch.TotalNetValue)
	}
	if batch.Status != "pending" || batch.CreatedByName != "Clinic Admin" || len(batch.Items) != 2 {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	rec = s.do(t, http.MethodGet, "/payments/eligible?psychologist_id="+psych.ID.String(), nil, false)
	if eligible := decode[[]AppointmentResponse](t, rec); len(eligible) != 0 {
		t.Fatalf("expected no eligible appointments after batching, got %d", len(eligible))
	}

	rec = s.do(t, http.MethodPost, "/payments/batches", create, true)
	expectStatus(t, rec, http.StatusConflict)

	base := "/payments/batches/" + batch.ID.String()

	rec = s.do(t, http.MethodPost, base+"/pay", nil, true)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(t, http.MethodPost, base+"/approve", nil, true)
	expectStatus(t, rec, http.StatusOK)
	if approved := decode[BatchResponse](t, rec); approved.Status != "approved" || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved batch: %+v", approved)
	}

	rec = s.do(t, http.MethodPost, base+"/pay", nil, true)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/payments/dashboard", nil, false)
	expectStatus(t, rec, http.StatusOK)
	dash := decode[DashboardResponse](t, rec)
	if !dash.TotalPaidAmount.Equal(decimal.NewFromInt(150)) || dash.TotalPendingPayments != 0 {
		t.Fatalf("unexpected dashboard: %+v", dash)
	}
	if len(dash.MonthlyPayments) != 1 || dash.MonthlyPayments[0].Month != "2026-10" {
		t.Fatalf("unexpected monthly payments: %+v", dash.MonthlyPayments)
	}

	rec = s.do(t, http.MethodGet, "/payments/psychologists/"+psych.ID.String()+"/summary", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if sum := decode[PsychologistSummaryResponse](t, rec); !sum.TotalPaid.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected psychologist summary: %+v", sum)
	}

	rec = s.do(t, http.MethodGet, "/finance/summary?period=month", nil, false)
	expectStatus(t, rec, http.StatusOK)
	fin := decode[FinanceSummaryResponse](t, rec)
	if fin.From != "2026-10-01" || fin.To != "2026-10-31" || !fin.ClinicRevenue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected finance summary: %+v", fin)
	}
}

func TestContestRequiresReason(t *testing.T) {
	s := newTestServer(t)
	psych, appts := s.seedCompleted(t, 50, 100)

	rec := s.do(t, http.MethodPost, "/payments/batches", CreateBatchRequest{
		PsychologistID: psych.ID.String(),
		AppointmentIDs: []string{appts[0].ID.String()},
	}, true)
	expectStatus(t, rec, http.StatusCreated)
	batch := decode[BatchResponse](t, rec)
	path := "/payments/batches/" + batch.ID.String() + "/contest"

	rec = s.do(t, http.MethodPost, path, ContestBatchRequest{Reason: "   "}, true)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, path, ContestBatchRequest{Reason: "session 14/10 missing"}, true)
	expectStatus(t, rec, http.StatusOK)
	contested := decode[BatchResponse](t, rec)
	if contested.ContestationReason == nil || *contested.ContestationReason != "session 14/10 missing" {
		t.Fatalf("unexpected contested batch: %+v", contested)
	}
}

func TestReapproveContestedBatchConflict(t *testing.T) {
	s := newTestServer(t)
	psych, appts := s.seedCompleted(t, 50, 100)
	create := CreateBatchRequest{
		PsychologistID: psych.ID.String(),
		AppointmentIDs: []string{appts[0].ID.String()},
	}

	rec := s.do(t, http.MethodPost, "/payments/batches", create, true)
	expectStatus(t, rec, http.StatusCreated)
	old := decode[BatchResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/payments/batches/"+old.ID.String()+"/contest", ContestBatchRequest{Reason: "wrong value"}, true)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/payments/batches", create, true)
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodPost, "/payments/batches/"+old.ID.String()+"/approve", nil, true)
	expectStatus(t, rec, http.StatusConflict)
}

func TestBatchErrors(t *testing.T) {
	s := newTestServer(t)
	psych, _ := s.seedCompleted(t, 50)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown batch", http.MethodGet, "/payments/batches/7f1c1f0e-6a3a-4bd4-9a4e-51d5e1d6f2c1", nil, http.StatusNotFound},
		{"approve unknown batch", http.MethodPost, "/payments/batches/7f1c1f0e-6a3a-4bd4-9a4e-51d5e1d6f2c1/approve", nil, http.StatusNotFound},
		{"malformed id", http.MethodGet, "/payments/batches/not-a-uuid", nil, http.StatusBadRequest},
		{"empty batch", http.MethodPost, "/payments/batches", CreateBatchRequest{PsychologistID: psych.ID.String()}, http.StatusUnprocessableEntity},
		{"unknown appointment", http.MethodPost, "/payments/batches", CreateBatchRequest{
			PsychologistID: psych.ID.String(),
			AppointmentIDs: []string{"7f1c1f0e-6a3a-4bd4-9a4e-51d5e1d6f2c1"},
		}, http.StatusNotFound},
		{"eligible without psychologist", http.MethodGet, "/payments/eligible", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/payments/batches/recent?limit=zero", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.body, true)
			expectStatus(t, rec, tc.want)
		})
	}
}

func TestBatchStatementDownload(t *testing.T) {
	s := newTestServer(t)
	psych, appts := s.seedCompleted(t, 40, 250)

	rec := s.do(t, http.MethodPost, "/payments/batches", CreateBatchRequest{
		PsychologistID: psych.ID.String(),
		AppointmentIDs: []string{appts[0].ID.String()},
	}, true)
	expectStatus(t, rec, http.StatusCreated)
	batch := decode[BatchResponse](t, rec)
	if !batch.TotalNetValue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected net 100 at 40%%, got %s", batch.TotalNetValue)
	}

	rec = s.do(t, http.MethodGet, "/payments/batches/"+batch.ID.String()+"/statement.xlsx", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected statement body")
	}
}

func TestAppointmentSummaryAndFilters(t *testing.T) {
	s := newTestServer(t)
	psych, _ := s.seedCompleted(t, 50, 100, 120)

	_, err := s.appts.RegisterAppointment(context.Background(), appointment.Appointment{
		PsychologistID: psych.ID,
		PatientName:    "Bruno Reis",
		Date:           "2026-10-16",
		Value:          decimal.NewFromInt(90),
		PaymentMethod:  appointment.PaymentInsurance,
	})
	if err != nil {
		t.Fatalf("register appointment: %v", err)
	}

	rec := s.do(t, http.MethodGet, "/appointments/summary?period=week&psychologist_id="+psych.ID.String(), nil, false)
	expectStatus(t, rec, http.StatusOK)
	sum := decode[StatusSummaryResponse](t, rec)
	if sum.From != "2026-10-12" || sum.To != "2026-10-18" || sum.Completed != 2 || sum.Pending != 1 || sum.Total != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	rec = s.do(t, http.MethodGet, "/appointments?status=completed", nil, false)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]AppointmentResponse](t, rec); len(list) != 2 {
		t.Fatalf("expected 2 completed appointments, got %d", len(list))
	}

	rec = s.do(t, http.MethodGet, "/appointments?from=17-10-2026", nil, false)
	expectStatus(t, rec, http.StatusBadRequest)
}
