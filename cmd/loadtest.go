package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"training-enrollment/internal/api/middleware"
	"training-enrollment/internal/config"
	domain "training-enrollment/internal/domain/enrollment"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	BaseURL         string
	JWTSecret       string
	Requests        int
	ConcurrentUsers int
	SessionCapacity int
}

// LoadTestResult holds the results of load testing
type LoadTestResult struct {
	TotalRequests     int
	Booked            int
	Full              int
	Failed            int
	AvgResponseTimeMs float64
	MaxResponseTimeMs int64
	MinResponseTimeMs int64
	ThroughputRPS     float64
	ErrorsByType      map[string]int
}

// LoadTester races many students for the seats of a single session
type LoadTester struct {
	config    LoadTestConfig
	client    *http.Client
	admin     domain.Requester
	sessionID uuid.UUID
	results   LoadTestResult
	mutex     sync.Mutex
	startTime time.Time
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewLoadTester creates a new load tester
func NewLoadTester(config LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		admin: domain.Requester{UserID: uuid.New(), Role: domain.RoleAdmin},
		results: LoadTestResult{
			ErrorsByType: make(map[string]int),
		},
	}
}

// Initialize creates the topic and session the test books against
func (lt *LoadTester) Initialize(ctx context.Context) error {
	fmt.Println("Initializing load test data...")

	var topic domain.Topic
	err := lt.call(ctx, lt.admin, http.MethodPost, "/api/v1/topics", domain.CreateTopicRequest{
		Name: fmt.Sprintf("loadtest-%s", uuid.NewString()[:8]),
	}, http.StatusCreated, &topic)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	trainerID := uuid.New()
	var session domain.Session
	err = lt.call(ctx, lt.admin, http.MethodPost, "/api/v1/sessions", domain.CreateSessionRequest{
		TopicID:   topic.TopicID,
		TrainerID: &trainerID,
		Title:     "Load test session",
		StartTime: time.Now().Add(24 * time.Hour).UTC(),
		Capacity:  lt.config.SessionCapacity,
	}, http.StatusCreated, &session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	lt.sessionID = session.SessionID
	fmt.Printf("Created session %s with %d seats\n", session.SessionID, session.Capacity)
	return nil
}

// RunLoadTest fires one booking per simulated student, at most
// ConcurrentUsers in flight
func (lt *LoadTester) RunLoadTest(ctx context.Context) error {
	fmt.Printf("Starting load test: %d bookings, %d concurrent...\n", lt.config.Requests, lt.config.ConcurrentUsers)

	lt.startTime = time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lt.config.ConcurrentUsers)

	for i := 0; i < lt.config.Requests; i++ {
		g.Go(func() error {
			lt.simulateBooking(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	lt.calculateMetrics()
	lt.printResults()
	return lt.verify(ctx)
}

func (lt *LoadTester) simulateBooking(ctx context.Context) {
	student := domain.Requester{UserID: uuid.New(), Role: domain.RoleStudent}
	startTime := time.Now()

	path := fmt.Sprintf("/api/v1/sessions/%s/bookings", lt.sessionID)
	req, err := lt.newRequest(ctx, student, http.MethodPost, path, nil)
	if err != nil {
		lt.recordError("build_request")
		return
	}

	resp, err := lt.client.Do(req)
	responseTime := time.Since(startTime)
	if err != nil {
		lt.recordError("http_request")
		return
	}
	resp.Body.Close()

	lt.recordResponse(resp.StatusCode, responseTime)
}

// verify checks the session counter against the number of successful bookings
func (lt *LoadTester) verify(ctx context.Context) error {
	var session domain.Session
	path := fmt.Sprintf("/api/v1/sessions/%s", lt.sessionID)
	if err := lt.call(ctx, lt.admin, http.MethodGet, path, nil, http.StatusOK, &session); err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}

	fmt.Printf("\nConsistency Check:\n")
	fmt.Printf("  - Session counter: %d/%d\n", session.CurrentAttendees, session.Capacity)
	fmt.Printf("  - Successful bookings: %d\n", lt.results.Booked)

	expected := lt.config.SessionCapacity
	if lt.config.Requests < expected {
		expected = lt.config.Requests
	}

	switch {
	case session.CurrentAttendees > session.Capacity:
		return fmt.Errorf("session oversold: %d attendees for %d seats", session.CurrentAttendees, session.Capacity)
	case session.CurrentAttendees != lt.results.Booked:
		return fmt.Errorf("counter %d does not match %d successful bookings", session.CurrentAttendees, lt.results.Booked)
	case lt.results.Failed == 0 && lt.results.Booked != expected:
		return fmt.Errorf("expected %d bookings to succeed, got %d", expected, lt.results.Booked)
	}

	fmt.Printf("  ✅ No overselling detected\n")
	return nil
}

func (lt *LoadTester) recordResponse(statusCode int, responseTime time.Duration) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	responseTimeMs := responseTime.Milliseconds()

	if lt.results.MaxResponseTimeMs < responseTimeMs {
		lt.results.MaxResponseTimeMs = responseTimeMs
	}
	if lt.results.MinResponseTimeMs == 0 || lt.results.MinResponseTimeMs > responseTimeMs {
		lt.results.MinResponseTimeMs = responseTimeMs
	}

	currentAvg := lt.results.AvgResponseTimeMs
	currentCount := float64(lt.results.TotalRequests)
	lt.results.AvgResponseTimeMs = (currentAvg*(currentCount-1) + float64(responseTimeMs)) / currentCount

	switch {
	case statusCode == http.StatusCreated:
		lt.results.Booked++
	case statusCode == http.StatusConflict:
		lt.results.Full++
	default:
		lt.results.Failed++
		lt.results.ErrorsByType[fmt.Sprintf("http_%d", statusCode)]++
	}
}

func (lt *LoadTester) recordError(errorType string) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	lt.results.Failed++
	lt.results.ErrorsByType[errorType]++
}

func (lt *LoadTester) calculateMetrics() {
	totalDuration := time.Since(lt.startTime)
	lt.results.ThroughputRPS = float64(lt.results.TotalRequests) / totalDuration.Seconds()
}

func (lt *LoadTester) printResults() {
	fmt.Println("\n" + strings.Repeat("=", 80))

	fmt.Printf("Test Configuration:\n")
	fmt.Printf("  - Concurrent Users: %d\n", lt.config.ConcurrentUsers)
	fmt.Printf("  - Booking Attempts: %d\n", lt.config.Requests)
	fmt.Printf("  - Session Capacity: %d seats\n", lt.config.SessionCapacity)

	total := float64(lt.results.TotalRequests)
	fmt.Printf("\nOutcomes:\n")
	fmt.Printf("  - Booked: %d (%.2f%%)\n", lt.results.Booked, float64(lt.results.Booked)/total*100)
	fmt.Printf("  - Rejected as full: %d (%.2f%%)\n", lt.results.Full, float64(lt.results.Full)/total*100)
	fmt.Printf("  - Failed: %d (%.2f%%)\n", lt.results.Failed, float64(lt.results.Failed)/total*100)

	fmt.Printf("\nResponse Time Metrics:\n")
	fmt.Printf("  - Average: %.2f ms\n", lt.results.AvgResponseTimeMs)
	fmt.Printf("  - Minimum: %d ms\n", lt.results.MinResponseTimeMs)
	fmt.Printf("  - Maximum: %d ms\n", lt.results.MaxResponseTimeMs)

	fmt.Printf("\nThroughput:\n")
	fmt.Printf("  - Requests per Second: %.2f\n", lt.results.ThroughputRPS)

	if len(lt.results.ErrorsByType) > 0 {
		fmt.Printf("\nError Breakdown:\n")
		types := make([]string, 0, len(lt.results.ErrorsByType))
		for errorType := range lt.results.ErrorsByType {
			types = append(types, errorType)
		}
		sort.Strings(types)
		for _, errorType := range types {
			fmt.Printf("  - %s: %d\n", errorType, lt.results.ErrorsByType[errorType])
		}
	}
}

func (lt *LoadTester) newRequest(ctx context.Context, requester domain.Requester, method, path string, body interface{}) (*http.Request, error) {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, lt.config.BaseURL+path, &payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if lt.config.JWTSecret == "" {
		req.Header.Set(middleware.HeaderUserID, requester.UserID.String())
		req.Header.Set(middleware.HeaderUserRole, string(requester.Role))
		return req, nil
	}

	token, err := middleware.IssueToken(lt.config.JWTSecret, requester, time.Hour)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (lt *LoadTester) call(ctx context.Context, requester domain.Requester, method, path string, body interface{}, wantStatus int, out interface{}) error {
	req, err := lt.newRequest(ctx, requester, method, path, body)
	if err != nil {
		return err
	}

	resp, err := lt.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, envelope.Message)
	}
	if out != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// loadtestCmd represents the loadtest command
var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Race concurrent bookings against one session",
	Long: `Create a session through the API and fire many concurrent bookings at it.
Reports outcome counts and response times, then checks that the session
counter equals the number of successful bookings and never exceeds capacity.`,
	Run: func(cmd *cobra.Command, args []string) {
		runLoadTest()
	},
}

var (
	baseURL         string
	loadJWTSecret   string
	numRequests     int
	concurrentUsers int
	sessionCapacity int
)

func init() {
	rootCmd.AddCommand(loadtestCmd)

	loadtestCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the enrollment API")
	loadtestCmd.Flags().StringVar(&loadJWTSecret, "jwt-secret", "", "Secret used to sign test tokens (defaults to auth.jwt_secret)")
	loadtestCmd.Flags().IntVar(&numRequests, "requests", 200, "Number of booking attempts, one student each")
	loadtestCmd.Flags().IntVar(&concurrentUsers, "concurrent", 50, "Maximum bookings in flight")
	loadtestCmd.Flags().IntVar(&sessionCapacity, "capacity", 30, "Seats in the test session (1-100)")
}

func runLoadTest() {
	secret := loadJWTSecret
	if secret == "" {
		cfg := config.Get()
		if !cfg.Auth.Disabled {
			secret = cfg.Auth.JWTSecret
		}
	}

	loadTester := NewLoadTester(LoadTestConfig{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		JWTSecret:       secret,
		Requests:        numRequests,
		ConcurrentUsers: concurrentUsers,
		SessionCapacity: sessionCapacity,
	})

	fmt.Println("Enrollment Booking Load Test")
	fmt.Println("============================")

	ctx := context.Background()
	if err := loadTester.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization failed: %v\n", err)
		os.Exit(1)
	}

	if err := loadTester.RunLoadTest(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Load test failed: %v\n", err)
		os.Exit(1)
	}
}
