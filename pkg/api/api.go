package api

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pedro-r-marques/cirunner/pkg/engine"
)

type ApiServer struct {
	engine engine.RunEngine
}

func NewApiServer(engine engine.RunEngine) *ApiServer {
	return &ApiServer{engine: engine}
}

func setHttpError(w http.ResponseWriter, statusCode int, errMessage string) {
	w.WriteHeader(statusCode)
	w.Write([]byte(errMessage))
}

// GET /api/pipelines
func (s *ApiServer) listPipelines(w http.ResponseWriter, req *http.Request) {
	list := s.engine.ListPipelines()
	msg, err := json.Marshal(list)
	if err != nil {
		setHttpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.Write(msg)
}

// POST /api/pipeline/<workflow>?id=<>
func (s *ApiServer) createRun(w http.ResponseWriter, req *http.Request) {
	workflow := req.URL.Path[len("/api/pipeline/"):]
	q := req.URL.Query()
	var runID uuid.UUID
	var idSet bool
	if idList, exists := q["id"]; exists {
		if len(idList) != 1 {
			setHttpError(w, http.StatusBadRequest, "invalid format for query parameter \"id\"")
			return
		}
		var err error
		runID, err = uuid.Parse(idList[0])
		if err != nil {
			setHttpError(w, http.StatusBadRequest, fmt.Sprintf("unable to parse uuid: %s", err.Error()))
			return
		}
		idSet = true
	}

	if req.Body != nil {
		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			setHttpError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(body) > 0 {
			var msg struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(body, &msg); err != nil {
				setHttpError(w, http.StatusBadRequest, err.Error())
				return
			}
			if msg.ID != "" {
				v, err := uuid.Parse(msg.ID)
				if err != nil {
					setHttpError(w, http.StatusBadRequest, err.Error())
					return
				}
				if idSet && v != runID {
					setHttpError(w, http.StatusBadRequest, "different \"id\" values in query and body")
					return
				}
				runID = v
				idSet = true
			}
		}
	}
	if !idSet {
		var err error
		if runID, err = uuid.NewRandom(); err != nil {
			setHttpError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if err := s.engine.Create(workflow, runID); err != nil {
		setHttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := struct {
		ID string `json:"id"`
	}{
		ID: runID.String(),
	}

	if rbody, err := json.Marshal(response); err == nil {
		w.Header().Set("Content-type", "application/json")
		w.Write(rbody)
	}
}

// GET /api/pipeline/<workflow>
func (s *ApiServer) listWorkflowRuns(w http.ResponseWriter, req *http.Request) {
	workflow := req.URL.Path[len("/api/pipeline/"):]
	runIDs, err := s.engine.ListWorkflowRuns(workflow)
	if err != nil {
		setHttpError(w, http.StatusNotFound, err.Error())
		return
	}

	var response struct {
		Runs []string `json:"runs"`
	}
	response.Runs = make([]string, 0, len(runIDs))
	for _, id := range runIDs {
		response.Runs = append(response.Runs, id.String())
	}

	body, err := json.Marshal(response)
	if err != nil {
		setHttpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.Write(body)
}

// GET /api/runs
func (s *ApiServer) listRuns(w http.ResponseWriter, req *http.Request) {
	runIDs := s.engine.ListRuns()
	var response struct {
		Runs []string `json:"runs"`
	}
	response.Runs = make([]string, 0, len(runIDs))
	for _, id := range runIDs {
		response.Runs = append(response.Runs, id.String())
	}

	body, err := json.Marshal(response)
	if err != nil {
		setHttpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.Write(body)
}

// GET /api/run/<id>
func (s *ApiServer) getRun(w http.ResponseWriter, req *http.Request) {
	runIDStr := req.URL.Path[len("/api/run/"):]
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		setHttpError(w, http.StatusBadRequest, fmt.Sprintf("invalid uuid %s", runIDStr))
		return
	}

	info, err := s.engine.RunStatus(runID)
	if err != nil {
		setHttpError(w, http.StatusNotFound, err.Error())
		return
	}

	response := struct {
		ID string `json:"uuid"`
		*engine.RunStatusInfo
	}{runID.String(), info}
	body, err := json.Marshal(response)
	if err != nil {
		setHttpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.Write(body)
}

// DELETE /api/run/<id>
func (s *ApiServer) cancelRun(w http.ResponseWriter, req *http.Request) {
	runIDStr := req.URL.Path[len("/api/run/"):]
	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		setHttpError(w, http.StatusBadRequest, fmt.Sprintf("invalid uuid %s", runIDStr))
		return
	}
	if err := s.engine.Cancel(runID); err != nil {
		setHttpError(w, http.StatusNotFound, err.Error())
		return
	}
}

func (s *ApiServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !strings.HasPrefix(req.URL.Path, "/api/") {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	command := req.URL.Path[len("/api/"):]
	loc := strings.Index(command, "/")
	if loc != -1 {
		command = command[:loc]
	}
	switch command {
	case "pipelines":
		if req.Method == http.MethodGet {
			s.listPipelines(w, req)
		} else {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "pipeline":
		switch req.Method {
		case http.MethodPost:
			s.createRun(w, req)
		case http.MethodGet:
			s.listWorkflowRuns(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "runs":
		if req.Method == http.MethodGet {
			s.listRuns(w, req)
		} else {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "run":
		switch req.Method {
		case http.MethodGet:
			s.getRun(w, req)
		case http.MethodDelete:
			s.cancelRun(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
