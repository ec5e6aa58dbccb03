package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"training-enrollment/internal/api/middleware"
	"training-enrollment/internal/config"
	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/database/dbtest"
	"training-enrollment/internal/infrastructure/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data"`
	MissingTopics []string        `json:"missing_topics"`
}

type apiClient struct {
	t      *testing.T
	router http.Handler
	jwt    bool
}

func newTestAPI(t *testing.T, authDisabled bool) *apiClient {
	t.Helper()

	cfg := &config.Config{
		App:     config.AppConfig{Version: "test"},
		Booking: config.BookingConfig{LockTimeout: 10 * time.Second},
		Auth:    config.AuthConfig{JWTSecret: testSecret, Disabled: authDisabled},
	}
	q := queue.NewInMemoryQueue(64, 1)
	components := NewEnrollmentRouter(dbtest.NewSQLite(t), cfg, Options{Queue: q})
	t.Cleanup(components.Queue.StopWorkers)

	return &apiClient{t: t, router: components.Router, jwt: !authDisabled}
}

func (a *apiClient) do(as *domain.Requester, method, path string, body any) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		if a.jwt {
			token, err := middleware.IssueToken(testSecret, *as, time.Hour)
			require.NoError(a.t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			req.Header.Set(middleware.HeaderUserID, as.UserID.String())
			req.Header.Set(middleware.HeaderUserRole, string(as.Role))
		}
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp envelope
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func (a *apiClient) createTopic(as *domain.Requester, name string) domain.Topic {
	a.t.Helper()
	code, resp := a.do(as, http.MethodPost, "/api/v1/topics", map[string]any{"name": name})
	require.Equal(a.t, http.StatusCreated, code, resp.Message)

	var topic domain.Topic
	require.NoError(a.t, json.Unmarshal(resp.Data, &topic))
	return topic
}

func (a *apiClient) createSession(as *domain.Requester, topicID uuid.UUID, capacity int) domain.Session {
	a.t.Helper()
	code, resp := a.do(as, http.MethodPost, "/api/v1/sessions", map[string]any{
		"topic_id":   topicID,
		"title":      "Evening workshop",
		"start_time": time.Now().UTC().Add(48 * time.Hour),
		"capacity":   capacity,
	})
	require.Equal(a.t, http.StatusCreated, code, resp.Message)

	var session domain.Session
	require.NoError(a.t, json.Unmarshal(resp.Data, &session))
	return session
}

func requester(role domain.Role) *domain.Requester {
	return &domain.Requester{UserID: uuid.New(), Role: role}
}

func TestEnrollmentRouter_BookingFlow(t *testing.T) {
	api := newTestAPI(t, true)
	adminUser := requester(domain.RoleAdmin)
	trainer := requester(domain.RoleTrainer)
	student := requester(domain.RoleStudent)

	topic := api.createTopic(adminUser, "Go Basics")
	session := api.createSession(trainer, topic.TopicID, 1)
	bookPath := "/api/v1/sessions/" + session.SessionID.String() + "/bookings"

	code, resp := api.do(student, http.MethodPost, bookPath, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var booking domain.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &booking))
	assert.Equal(t, student.UserID, booking.StudentID)

	code, _ = api.do(student, http.MethodPost, bookPath, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(requester(domain.RoleStudent), http.MethodPost, bookPath, nil)
	assert.Equal(t, http.StatusConflict, code, "session is full")

	code, _ = api.do(requester(domain.RoleStudent), http.MethodDelete, "/api/v1/bookings/"+booking.BookingID.String(), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(student, http.MethodDelete, "/api/v1/bookings/"+booking.BookingID.String(), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(student, http.MethodDelete, "/api/v1/bookings/"+booking.BookingID.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = api.do(trainer, http.MethodGet, "/api/v1/sessions/"+session.SessionID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var reloaded domain.Session
	require.NoError(t, json.Unmarshal(resp.Data, &reloaded))
	assert.Equal(t, 0, reloaded.CurrentAttendees)

	// booking_created and booking_cancelled are persisted by the queue worker
	assert.Eventually(t, func() bool {
		code, resp := api.do(student, http.MethodGet, "/api/v1/notifications", nil)
		if code != http.StatusOK {
			return false
		}
		var notifications []domain.Notification
		return json.Unmarshal(resp.Data, &notifications) == nil && len(notifications) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestEnrollmentRouter_PrerequisitesNotMet(t *testing.T) {
	api := newTestAPI(t, true)
	adminUser := requester(domain.RoleAdmin)
	student := requester(domain.RoleStudent)

	basics := api.createTopic(adminUser, "Go Basics")
	advanced := api.createTopic(adminUser, "Go Concurrency")

	code, _ := api.do(adminUser, http.MethodPost, "/api/v1/topic-prerequisites", map[string]any{
		"topic_id":              advanced.TopicID,
		"prerequisite_topic_id": basics.TopicID,
	})
	require.Equal(t, http.StatusCreated, code)

	code, resp := api.do(adminUser, http.MethodPost, "/api/v1/topic-prerequisites", map[string]any{
		"topic_id":              basics.TopicID,
		"prerequisite_topic_id": advanced.TopicID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Message, "prerequisite")

	session := api.createSession(adminUser, advanced.TopicID, 5)
	bookPath := "/api/v1/sessions/" + session.SessionID.String() + "/bookings"

	code, resp = api.do(student, http.MethodPost, bookPath, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, []string{"Go Basics"}, resp.MissingTopics)

	code, _ = api.do(adminUser, http.MethodPost, "/api/v1/students/"+student.UserID.String()+"/topics", map[string]any{
		"topic_id": basics.TopicID,
	})
	require.Equal(t, http.StatusCreated, code)

	code, _ = api.do(student, http.MethodPost, bookPath, nil)
	assert.Equal(t, http.StatusCreated, code)
}

func TestEnrollmentRouter_Authorization(t *testing.T) {
	api := newTestAPI(t, true)
	student := requester(domain.RoleStudent)

	code, _ := api.do(nil, http.MethodGet, "/api/v1/topics", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(student, http.MethodPost, "/api/v1/topics", map[string]any{"name": "Go"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(student, http.MethodGet, "/api/v1/students/"+uuid.NewString()+"/bookings", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(student, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(student, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEnrollmentRouter_BearerTokens(t *testing.T) {
	api := newTestAPI(t, false)
	adminUser := requester(domain.RoleAdmin)

	api.createTopic(adminUser, "Go Basics")

	code, _ := api.do(nil, http.MethodGet, "/api/v1/topics", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.IssueToken("another-secret", *adminUser, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	code, resp := api.do(adminUser, http.MethodGet, "/api/v1/topics", nil)
	require.Equal(t, http.StatusOK, code)
	var topics []domain.Topic
	require.NoError(t, json.Unmarshal(resp.Data, &topics))
	assert.Len(t, topics, 1)
}

func TestEnrollmentRouter_Health(t *testing.T) {
	api := newTestAPI(t, true)

	for _, path := range []string{"/health", "/ready", "/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
