package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) PublishCustomerEvent(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type testServer struct {
	handler   http.Handler
	manager   *Manager
	publisher *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	m := newTestManager(t)
	pub := &recordingPublisher{}
	svc, err := NewService(Options{
		CustomerManager: m,
		Publisher:       pub,
		Logger:          zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return &testServer{
		handler:   svc.Router(),
		manager:   m,
		publisher: pub,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

var alicePayload = map[string]interface{}{
	"id":                   0,
	"name":                 "Alice",
	"country_of_birth":     "FR",
	"country_of_residence": "DE",
	"segment":              "retail",
}

func TestNewServiceValidatesOptions(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)

	_, err = NewService(Options{CustomerManager: &Manager{}, Logger: zaptest.NewLogger(t)})
	assert.Error(t, err)
}

func TestCreateThenListOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", alicePayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created Customer
	decode(t, w, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Alice", created.Name)

	w = s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var all []Customer
	decode(t, w, &all)
	assert.Contains(t, all, Customer{
		ID:                 created.ID,
		Name:               "Alice",
		CountryOfBirth:     "FR",
		CountryOfResidence: "DE",
		Segment:            "retail",
	})
	assert.Equal(t, []EventType{EventCreated}, s.publisher.types())
}

func TestListEmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateRejectsBadBodies(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed json", `{"name": `, http.StatusBadRequest},
		{"wrong type", `{"name": 5, "country_of_birth": "FR", "country_of_residence": "DE", "segment": "x"}`, http.StatusBadRequest},
		{"missing segment", map[string]interface{}{"id": 0, "name": "Alice", "country_of_birth": "FR", "country_of_residence": "DE"}, http.StatusUnprocessableEntity},
		{"missing id", map[string]string{"name": "Alice", "country_of_birth": "FR", "country_of_residence": "DE", "segment": "retail"}, http.StatusUnprocessableEntity},
		{"null id", `{"id": null, "name": "Alice", "country_of_birth": "FR", "country_of_residence": "DE", "segment": "retail"}`, http.StatusUnprocessableEntity},
		{"empty object", `{}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodGet, "/", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Empty(t, s.publisher.types())
}

func TestUpdateRejectsMissingID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", alicePayload)
	require.Equal(t, http.StatusOK, w.Code)
	var created Customer
	decode(t, w, &created)
	path := "/" + strconv.Itoa(created.ID)

	w = s.do(t, http.MethodPut, path, map[string]string{
		"name":                 "Bob",
		"country_of_birth":     "FR",
		"country_of_residence": "DE",
		"segment":              "retail",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var got Customer
	decode(t, s.do(t, http.MethodGet, path, nil), &got)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, []EventType{EventCreated}, s.publisher.types())
}

func TestCreateAcceptsEmptyStrings(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", map[string]interface{}{
		"id":                   0,
		"name":                 "",
		"country_of_birth":     "",
		"country_of_residence": "",
		"segment":              "",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/12345", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "Customer not found", body["detail"])
}

func TestGetRejectsNonIntegerID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateThenGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", alicePayload)
	require.Equal(t, http.StatusOK, w.Code)
	var created Customer
	decode(t, w, &created)
	path := "/" + strconv.Itoa(created.ID)

	w = s.do(t, http.MethodPut, path, map[string]interface{}{
		"id":                   777,
		"name":                 "Alice",
		"country_of_birth":     "FR",
		"country_of_residence": "IT",
		"segment":              "premium",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated Customer
	decode(t, w, &updated)
	assert.Equal(t, created.ID, updated.ID, "path id wins over body id")

	w = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Customer
	decode(t, w, &got)
	assert.Equal(t, Customer{
		ID:                 created.ID,
		Name:               "Alice",
		CountryOfBirth:     "FR",
		CountryOfResidence: "IT",
		Segment:            "premium",
	}, got)
	assert.Equal(t, []EventType{EventCreated, EventUpdated}, s.publisher.types())
}

func TestUpdateMissingStillSucceeds(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/41", alicePayload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var echoed Customer
	decode(t, w, &echoed)
	assert.Equal(t, 41, echoed.ID)
	assert.Equal(t, "Alice", echoed.Name)

	w = s.do(t, http.MethodGet, "/", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodGet, "/41", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, s.publisher.types())
}

func TestDeleteExistingThenGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", alicePayload)
	require.Equal(t, http.StatusOK, w.Code)
	var created Customer
	decode(t, w, &created)
	path := "/" + strconv.Itoa(created.ID)

	w = s.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Customer deleted successfully"}`, w.Body.String())

	w = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []EventType{EventCreated, EventDeleted}, s.publisher.types())
}

func TestDeleteMissingIsAcknowledged(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/", alicePayload)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/9999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Customer deleted successfully"}`, w.Body.String())

	var all []Customer
	decode(t, s.do(t, http.MethodGet, "/", nil), &all)
	assert.Len(t, all, 1)
	assert.Equal(t, []EventType{EventCreated}, s.publisher.types())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	s := newTestServer(t)
	s.publisher.err = errors.New("broker down")

	w := s.do(t, http.MethodPost, "/", alicePayload)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStorageFailureIsServerError(t *testing.T) {
	s := newTestServer(t)

	// drop the table out from under the service
	require.NoError(t, s.manager.conns.WithConnection(context.Background(), func(conn *gorm.DB) error {
		return conn.Exec("DROP TABLE customers").Error
	}))

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = s.do(t, http.MethodGet, "/1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
