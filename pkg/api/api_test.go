package api

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedro-r-marques/cirunner/pkg/engine"
	mock_engine "github.com/pedro-r-marques/cirunner/pkg/engine/mock"
)

func TestListPipelines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)
	eng.EXPECT().ListPipelines().Return([]engine.PipelineInfo{
		{Name: "build_and_test", Jobs: []string{"python2.7", "python3.6", "python3.7"}},
	})
	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodGet, "/api/pipelines", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response []engine.PipelineInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response, 1)
	assert.Equal(t, "build_and_test", response[0].Name)
}

func TestCreateRunIDParamNoBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	runID, _ := uuid.Parse("f557697b-f911-401c-86b7-6d9b62f1f2bb")
	eng.EXPECT().Create(gomock.Eq("build_and_test"), gomock.Eq(runID)).Return(nil)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPost, "/api/pipeline/build_and_test?id=f557697b-f911-401c-86b7-6d9b62f1f2bb", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	wbody, err := ioutil.ReadAll(w.Body)
	assert.NoError(t, err)
	var response struct {
		ID string
	}
	assert.NoError(t, json.Unmarshal(wbody, &response))
	v, err := uuid.Parse(response.ID)
	require.NoError(t, err)
	require.Equal(t, runID, v)
}

func TestCreateRunBodyId(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	runID, _ := uuid.Parse("f557697b-f911-401c-86b7-6d9b62f1f2bb")
	eng.EXPECT().Create(gomock.Eq("build_and_test"), gomock.Eq(runID)).Return(nil)

	body, err := json.Marshal(map[string]string{
		"id": "f557697b-f911-401c-86b7-6d9b62f1f2bb",
	})
	assert.NoError(t, err)
	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPost, "/api/pipeline/build_and_test", bytes.NewReader(body))
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRunRandId(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)
	eng.EXPECT().Create(gomock.Eq("build_and_test"), gomock.Any()).Return(nil)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPost, "/api/pipeline/build_and_test", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		ID string
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	_, err := uuid.Parse(response.ID)
	require.NoError(t, err)
}

func TestCreateRunIdMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	body, _ := json.Marshal(map[string]string{
		"id": "11111111-1111-4111-8111-111111111111",
	})
	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPost,
		"/api/pipeline/build_and_test?id=f557697b-f911-401c-86b7-6d9b62f1f2bb", bytes.NewReader(body))
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunUnknownWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)
	eng.EXPECT().Create(gomock.Eq("nightly"), gomock.Any()).
		Return(assert.AnError)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPost, "/api/pipeline/nightly", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	runID := uuid.New()
	eng.EXPECT().RunStatus(gomock.Eq(runID)).Return(&engine.RunStatusInfo{
		Workflow: "build_and_test",
		Status:   engine.StatusPassed,
		Open:     []engine.JobStatusEntry{},
		Closed: []engine.JobStatusEntry{
			{Job: "python3.6", Step: "run tests", Attempt: 1, Status: engine.StatusPassed},
		},
	}, nil)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodGet, "/api/run/"+runID.String(), nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		ID        string                   `json:"uuid"`
		Status    engine.Status            `json:"status"`
		Completed []engine.JobStatusEntry  `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, runID.String(), response.ID)
	assert.Equal(t, engine.StatusPassed, response.Status)
	require.Len(t, response.Completed, 1)
}

func TestGetRunBadId(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodGet, "/api/run/not-a-uuid", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)
	eng.EXPECT().ListRuns().Return([]uuid.UUID{uuid.New(), uuid.New()})

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodGet, "/api/runs", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Runs []string `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Runs, 2)
}

func TestCancelRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	runID := uuid.New()
	eng.EXPECT().Cancel(gomock.Eq(runID)).Return(nil)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodDelete, "/api/run/"+runID.String(), nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	eng := mock_engine.NewMockRunEngine(ctrl)

	apiSrv := NewApiServer(eng)
	req, _ := http.NewRequest(http.MethodPut, "/api/pipelines", nil)
	apiSrv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
