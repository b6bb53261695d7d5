package store

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedro-r-marques/cirunner/pkg/engine"
)

func tempStore(t *testing.T) (engine.RunStore, func()) {
	t.Helper()
	tmpfile, err := ioutil.TempFile("", "dbfile")
	if err != nil {
		t.Fatal(err)
	}
	tmpfile.Close()

	store, err := NewSqliteStore(tmpfile.Name())
	require.NoError(t, err)
	return store, func() { os.Remove(tmpfile.Name()) }
}

func TestUpdate(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	runID := uuid.New()
	logs := []*engine.LogEntry{
		{Job: "python3.6", Step: "checkout", Attempt: 1, Status: engine.StatusPassed},
	}
	err := store.Update(runID, "build_and_test", logs)
	require.NoError(t, err)
}

func TestUpdateAndRead(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	runID := uuid.New()
	logs := []*engine.LogEntry{
		{Job: "python3.6", Step: "checkout", Attempt: 1, Status: engine.StatusRunning},
	}
	err := store.Update(runID, "build_and_test", logs)
	require.NoError(t, err)

	logs2 := []*engine.LogEntry{
		{Job: "python3.6", Step: "checkout", Attempt: 1, Status: engine.StatusPassed, Output: []byte("ok")},
		{Job: "python3.6", Step: "run tests", Attempt: 1, Status: engine.StatusRunning},
	}
	err = store.Update(runID, "build_and_test", logs2)
	require.NoError(t, err)

	info, err := store.GetRunningRunLogs(runID)
	require.NoError(t, err)
	require.Equal(t, "build_and_test", info.Workflow)
	require.Len(t, info.Logs, 2)
	require.ElementsMatch(t, logs2, info.Logs)
}

func TestRetryAttemptsAreDistinctRows(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	runID := uuid.New()
	logs := []*engine.LogEntry{
		{Job: "python3.6", Step: "run tests", Attempt: 1, Status: engine.StatusFailed},
		{Job: "python3.6", Step: "run tests", Attempt: 2, Status: engine.StatusPassed},
	}
	require.NoError(t, store.Update(runID, "build_and_test", logs))

	info, err := store.GetRunningRunLogs(runID)
	require.NoError(t, err)
	require.Len(t, info.Logs, 2)
	require.ElementsMatch(t, logs, info.Logs)
}

func TestRunDone(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	var runIDs []uuid.UUID
	for i := 0; i < 10; i++ {
		runID := uuid.New()
		logs := []*engine.LogEntry{
			{Job: fmt.Sprintf("python3.%d", i), Step: "checkout", Attempt: 1, Status: engine.StatusPassed},
		}
		require.NoError(t, store.Update(runID, "build_and_test", logs))
		runIDs = append(runIDs, runID)
	}

	indices := []int{3, 5, 7}
	for _, ix := range indices {
		info, err := store.GetRunningRunLogs(runIDs[ix])
		require.NoError(t, err)
		err = store.OnRunDone(runIDs[ix], "build_and_test", engine.StatusPassed, info.Logs)
		require.NoError(t, err)
	}

	for _, ix := range indices {
		_, err := store.GetRunningRunLogs(runIDs[ix])
		require.Error(t, err)

		info, err := store.GetCompletedRunLogs(runIDs[ix])
		require.NoError(t, err)
		assert.Equal(t, engine.StatusPassed, info.Status)
	}

	_, err := store.GetRunningRunLogs(runIDs[0])
	require.NoError(t, err)
	_, err = store.GetCompletedRunLogs(runIDs[0])
	require.Error(t, err)
}

func TestRecover(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	doneID := uuid.New()
	require.NoError(t, store.Update(doneID, "build_and_test", []*engine.LogEntry{
		{Job: "python2.7", Step: "checkout", Attempt: 1, Status: engine.StatusPassed},
	}))
	require.NoError(t, store.OnRunDone(doneID, "build_and_test", engine.StatusPassed, nil))

	openID := uuid.New()
	openLogs := []*engine.LogEntry{
		{Job: "python3.6", Step: "checkout", Attempt: 1, Status: engine.StatusPassed},
		{Job: "python3.6", Step: "run tests", Attempt: 1, Status: engine.StatusRunning},
	}
	require.NoError(t, store.Update(openID, "build_and_test", openLogs))

	infos, err := store.Recover()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, openID, infos[0].ID)
	assert.Equal(t, "build_and_test", infos[0].Workflow)
	require.ElementsMatch(t, openLogs, infos[0].Logs)
}

func TestGetUnknownRun(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	_, err := store.GetRunningRunLogs(uuid.New())
	require.Error(t, err)
}
