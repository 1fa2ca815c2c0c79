package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/config"
	"github.com/iwtcode/modbusAdapter/internal/domain/models"
	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsecases struct {
	groups   []models.GroupInfo
	err      error
	created  []models.PollingGroupRequest
	tasks    map[string][]models.TaskDefinition
	stopped  []string
	readReq  models.RegisterReadRequest
	readVal  interface{}
	writeReq models.RegisterWriteRequest
}

func newStub() *stubUsecases {
	return &stubUsecases{tasks: make(map[string][]models.TaskDefinition)}
}

func (s *stubUsecases) GetPool() models.PoolStats {
	return models.PoolStats{Endpoint: "plc:502", Size: 1, Idle: 1, MaxSize: 10, Sessions: []models.SessionInfo{}}
}

func (s *stubUsecases) GetGroups() []models.GroupInfo { return s.groups }

func (s *stubUsecases) CreateGroup(req models.PollingGroupRequest) (*models.GroupInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, req)
	return &models.GroupInfo{ID: req.ID, IntervalMs: int64(req.IntervalMs)}, nil
}

func (s *stubUsecases) AddTask(groupID string, task models.TaskDefinition) (*models.GroupInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks[groupID] = append(s.tasks[groupID], task)
	return &models.GroupInfo{ID: groupID, Tasks: []string{task.Name}}, nil
}

func (s *stubUsecases) StopGroup(groupID string) error {
	if s.err != nil {
		return s.err
	}
	s.stopped = append(s.stopped, groupID)
	return nil
}

func (s *stubUsecases) StopAll() error { return s.err }

func (s *stubUsecases) RestoreGroups(string) (int, error) { return 0, nil }

func (s *stubUsecases) ReadRegisters(ctx context.Context, req models.RegisterReadRequest) (interface{}, error) {
	s.readReq = req
	return s.readVal, s.err
}

func (s *stubUsecases) WriteRegisters(ctx context.Context, req models.RegisterWriteRequest) error {
	s.writeReq = req
	return s.err
}

func setupTest(t *testing.T) (*stubUsecases, http.Handler) {
	t.Helper()
	stub := newStub()
	router := ProvideRouter(NewHandler(stub, logging.NewNop()), &config.AppConfig{GinMode: "test"})
	return stub, router
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetPool(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/pool", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp models.PoolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "plc:502", resp.Pool.Endpoint)
	assert.Equal(t, int64(1), resp.Pool.Size)
}

func TestCreateGroup(t *testing.T) {
	stub, router := setupTest(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/polling", models.PollingGroupRequest{
		ID: "boiler", IntervalMs: 500, RetryCount: 2,
		Tasks: []models.TaskDefinition{{Name: "t", Kind: "float", Address: 10}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.GroupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Group)
	assert.Equal(t, "boiler", resp.Group.ID)
	assert.Equal(t, int64(500), resp.Group.IntervalMs)
	require.Len(t, stub.created, 1)
	assert.Equal(t, "boiler", stub.created[0].ID)
	assert.Equal(t, "float", stub.created[0].Tasks[0].Kind)
}

func TestCreateGroupBindingErrors(t *testing.T) {
	stub, router := setupTest(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/polling", map[string]interface{}{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/polling", map[string]interface{}{
		"id": "x", "interval_ms": 100, "tasks": []map[string]interface{}{{"name": "t"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.created)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.InvalidArgument("bad"), http.StatusBadRequest},
		{fmt.Errorf("группа 'x': %w", apperrors.ErrGroupNotFound), http.StatusNotFound},
		{apperrors.ErrGroupExists, http.StatusConflict},
		{apperrors.ThrottleTimeout(time.Second), http.StatusServiceUnavailable},
		{apperrors.ErrNotStarted, http.StatusServiceUnavailable},
		{apperrors.ConnectTimeout("plc:502", time.Second, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{apperrors.NewTransportError("read", "plc:502", fmt.Errorf("reset")), http.StatusBadGateway},
		{&apperrors.MaxRetryError{Attempts: 3, Err: fmt.Errorf("exception")}, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			stub, router := setupTest(t)
			stub.err = tc.err

			rec := doRequest(t, router, http.MethodPost, "/api/v1/registers/read", models.RegisterReadRequest{Kind: "holding"})
			assert.Equal(t, tc.status, rec.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tc.status, resp.Error.Code)
		})
	}
}

func TestAddTaskAndStop(t *testing.T) {
	stub, router := setupTest(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/polling/boiler/tasks", models.TaskDefinition{Name: "alarms", Kind: "bits", Address: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.tasks["boiler"], 1)
	assert.Equal(t, uint16(5), stub.tasks["boiler"][0].Address)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/polling/boiler", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"boiler"}, stub.stopped)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/polling", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadAndWriteRegisters(t *testing.T) {
	stub, router := setupTest(t)
	stub.readVal = []float32{1.5}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/registers/read", models.RegisterReadRequest{Kind: "float", Address: 100, Count: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint16(100), stub.readReq.Address)
	assert.JSONEq(t, `{"status":"ok","kind":"float","address":100,"values":[1.5]}`, rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/api/v1/registers/write", models.RegisterWriteRequest{Kind: "coils", Bits: []bool{true}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true}, stub.writeReq.Bits)
}

func TestGetGroups(t *testing.T) {
	stub, router := setupTest(t)
	lastTick := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stub.groups = []models.GroupInfo{
		{ID: "a", IntervalMs: 500, Tasks: []string{}},
		{ID: "b", IntervalMs: 1000, Tasks: []string{}, LastTick: &lastTick},
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/polling", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Groups []map[string]interface{} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Groups, 2)
	assert.NotContains(t, raw.Groups[0], "last_tick")
	assert.Equal(t, 500.0, raw.Groups[0]["interval_ms"])
	assert.Equal(t, "2024-05-01T12:00:00Z", raw.Groups[1]["last_tick"])

	var resp models.GroupsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "b", resp.Groups[1].ID)
}
