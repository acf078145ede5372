package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	CreateRatio   float64
	ReviewRatio   float64
	PayRatio      float64
	ReadRatio     float64
	ContestChance float64
	MaxBatchSize  int
}

// DataPool tracks the psychologists known to the API and the batches the
// simulation created, by their last seen status.
type DataPool struct {
	Psychologists []uuid.UUID
	mu            sync.Mutex
	pending       []uuid.UUID
	approved      []uuid.UUID
}

func (dp *DataPool) AddPending(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.pending = append(dp.pending, id)
}

func (dp *DataPool) AddApproved(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.approved = append(dp.approved, id)
}

func (dp *DataPool) TakePending(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return take(&dp.pending, rng)
}

func (dp *DataPool) TakeApproved(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return take(&dp.approved, rng)
}

func take(list *[]uuid.UUID, rng *rand.Rand) (uuid.UUID, bool) {
	if len(*list) == 0 {
		return uuid.Nil, false
	}
	idx := rng.Intn(len(*list))
	id := (*list)[idx]
	(*list)[idx] = (*list)[len(*list)-1]
	*list = (*list)[:len(*list)-1]
	return id, true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	CreateBatch OperationMetrics
	Approve     OperationMetrics
	Contest     OperationMetrics
	Pay         OperationMetrics
	Dashboard   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	faker   *gofakeit.Faker
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d create=%.2f review=%.2f pay=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.CreateRatio, cfg.ReviewRatio, cfg.PayRatio, cfg.ReadRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		faker: gofakeit.New(time.Now().UnixNano()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dataPool, err := sim.loadDataPool(ctx)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	sim.pool = dataPool

	log.Printf("loaded: %d psychologists", len(dataPool.Psychologists))

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		CreateRatio:   getFloat("SIM_CREATE_RATIO", 0.3),
		ReviewRatio:   getFloat("SIM_REVIEW_RATIO", 0.3),
		PayRatio:      getFloat("SIM_PAY_RATIO", 0.2),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.2),
		ContestChance: getFloat("SIM_CONTEST_CHANCE", 0.2),
		MaxBatchSize:  getInt("SIM_MAX_BATCH_SIZE", 5),
	}

	total := cfg.CreateRatio + cfg.ReviewRatio + cfg.PayRatio + cfg.ReadRatio
	if total > 0 {
		cfg.CreateRatio /= total
		cfg.ReviewRatio /= total
		cfg.PayRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.MaxBatchSize <= 0 {
		return fmt.Errorf("SIM_MAX_BATCH_SIZE must be > 0")
	}
	return nil
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	var psychologists []struct {
		ID uuid.UUID `json:"id"`
	}
	status, err := s.call(ctx, http.MethodGet, "/psychologists", nil, &psychologists)
	if err != nil {
		return nil, fmt.Errorf("list psychologists: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list psychologists: status %d", status)
	}

	dataPool := &DataPool{}
	for _, p := range psychologists {
		dataPool.Psychologists = append(dataPool.Psychologists, p.ID)
	}
	if len(dataPool.Psychologists) == 0 {
		return nil, fmt.Errorf("no psychologists loaded, run the seed first")
	}
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.CreateRatio:
				s.doCreateBatch(ctx, rng)
			case r < s.config.CreateRatio+s.config.ReviewRatio:
				s.doReview(ctx, rng)
			case r < s.config.CreateRatio+s.config.ReviewRatio+s.config.PayRatio:
				s.doPay(ctx, rng)
			default:
				s.doReadDashboard(ctx)
			}
		}
	}
}

func (s *Simulator) doCreateBatch(ctx context.Context, rng *rand.Rand) {
	psychologistID := s.pool.Psychologists[rng.Intn(len(s.pool.Psychologists))]

	var eligible []struct {
		ID uuid.UUID `json:"id"`
	}
	status, err := s.call(ctx, http.MethodGet, "/payments/eligible?psychologist_id="+psychologistID.String(), nil, &eligible)
	if err != nil || status != http.StatusOK || len(eligible) == 0 {
		return
	}

	n := 1 + rng.Intn(s.config.MaxBatchSize)
	if n > len(eligible) {
		n = len(eligible)
	}
	ids := make([]string, 0, n)
	for _, a := range eligible[:n] {
		ids = append(ids, a.ID.String())
	}

	start := time.Now()
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	status, err = s.call(ctx, http.MethodPost, "/payments/batches", map[string]any{
		"psychologist_id": psychologistID.String(),
		"appointment_ids": ids,
	}, &created)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	if success && created.ID != uuid.Nil {
		s.pool.AddPending(created.ID)
	}
	s.metrics.CreateBatch.Record(latency, success, status == http.StatusConflict)
}

func (s *Simulator) doReview(ctx context.Context, rng *rand.Rand) {
	batchID, ok := s.pool.TakePending(rng)
	if !ok {
		return
	}

	if rng.Float64() < s.config.ContestChance {
		start := time.Now()
		status, err := s.call(ctx, http.MethodPost, "/payments/batches/"+batchID.String()+"/contest",
			map[string]string{"reason": s.faker.Sentence(6)}, nil)
		s.metrics.Contest.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
		return
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/payments/batches/"+batchID.String()+"/approve", nil, nil)
	success := err == nil && status == http.StatusOK
	if success {
		s.pool.AddApproved(batchID)
	}
	s.metrics.Approve.Record(time.Since(start), success, status == http.StatusConflict)
}

func (s *Simulator) doPay(ctx context.Context, rng *rand.Rand) {
	batchID, ok := s.pool.TakeApproved(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/payments/batches/"+batchID.String()+"/pay", nil, nil)
	s.metrics.Pay.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doReadDashboard(ctx context.Context) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/payments/dashboard", nil, nil)
	s.metrics.Dashboard.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

// call sends a JSON request as the simulated finance user and decodes the
// response into out when it is non-nil.
func (s *Simulator) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "simulator")
	req.Header.Set("X-User-Name", "Load Simulator")
	req.Header.Set("X-User-Role", "finance")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Create batch", &s.metrics.CreateBatch)
	printOperationReport("Approve", &s.metrics.Approve)
	printOperationReport("Contest", &s.metrics.Contest)
	printOperationReport("Pay", &s.metrics.Pay)
	printOperationReport("Dashboard", &s.metrics.Dashboard)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
