package runs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/mocks"
	"github.com/birun/console/pkg/models"
	"github.com/moogar0880/problems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

func run(id int64, status models.RunStatus) *models.WorkflowRun {
	return &models.WorkflowRun{ID: id, WorkflowID: 3, Status: status}
}

func TestOrchestrator_StartRun(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("StartRun", mock.Anything, int64(3)).Return(&models.RunStarted{RunID: 41, Status: models.RunRunning}, nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "41", mock.AnythingOfType("events.RunStarted")).Return(nil)

	o := NewOrchestrator(runAPI, Config{Publisher: bus})

	id, err := o.StartRun(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)

	runAPI.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestOrchestrator_StartRunKeepsServerMessage(t *testing.T) {
	problem := problems.NewStatusProblem(409)
	problem.Detail = "Workflow has no nodes"

	runAPI := &mocks.MockRunAPI{}
	runAPI.On("StartRun", mock.Anything, int64(3)).Return(nil, &api.Error{Op: "StartRun", StatusCode: 409, Problem: problem})

	o := NewOrchestrator(runAPI, Config{})

	_, err := o.StartRun(t.Context(), 3)
	require.Error(t, err)
	assert.Equal(t, "Workflow has no nodes", api.Message(err, api.MsgRunFailed))

	runAPI2 := &mocks.MockRunAPI{}
	runAPI2.On("StartRun", mock.Anything, int64(3)).Return(nil, errors.New("dial tcp: refused"))

	_, err = NewOrchestrator(runAPI2, Config{}).StartRun(t.Context(), 3)
	assert.Equal(t, api.MsgRunFailed, api.Message(err, api.MsgRunFailed))
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(&mocks.MockRunAPI{}, Config{})

	assert.Equal(t, DefaultPollInterval, o.interval)
	assert.Equal(t, eventbus.Discard, o.publisher)
}

func TestMonitor_SwallowsErrorsUntilTerminal(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("GetRun", mock.Anything, int64(9)).Return(nil, errors.New("gateway timeout")).Once()
	runAPI.On("GetRun", mock.Anything, int64(9)).Return(run(9, models.RunRunning), nil).Once()
	runAPI.On("GetRun", mock.Anything, int64(9)).Return(nil, errors.New("connection reset")).Once()
	runAPI.On("GetRun", mock.Anything, int64(9)).Return(run(9, models.RunCompleted), nil).Once()

	o := NewOrchestrator(runAPI, Config{PollInterval: testInterval})

	var (
		mu       sync.Mutex
		statuses []models.RunStatus
	)

	w := o.Monitor(t.Context(), 9, func(r *models.WorkflowRun) {
		mu.Lock()
		defer mu.Unlock()

		statuses = append(statuses, r.Status)
	})

	final, err := w.Wait()
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, final.Status)
	assert.Equal(t, []models.RunStatus{models.RunRunning, models.RunCompleted}, statuses)

	// no further polls after the terminal status
	time.Sleep(4 * testInterval)
	runAPI.AssertNumberOfCalls(t, "GetRun", 4)
}

func TestMonitor_TerminalStatuses(t *testing.T) {
	for _, status := range []models.RunStatus{models.RunFailed, models.RunCancelled, models.RunNoStartNodes} {
		t.Run(string(status), func(t *testing.T) {
			runAPI := &mocks.MockRunAPI{}
			runAPI.On("GetRun", mock.Anything, int64(1)).Return(run(1, status), nil).Once()

			w := NewOrchestrator(runAPI, Config{PollInterval: testInterval}).Monitor(t.Context(), 1, nil)

			final, err := w.Wait()
			require.NoError(t, err)
			assert.Equal(t, status, final.Status)
		})
	}
}

func TestMonitor_StopTearsDown(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("GetRun", mock.Anything, int64(2)).Return(run(2, models.RunRunning), nil)

	w := NewOrchestrator(runAPI, Config{PollInterval: testInterval}).Monitor(t.Context(), 2, nil)

	require.Eventually(t, func() bool { return w.Last() != nil }, time.Second, testInterval)

	w.Stop()
	w.Stop()

	last, err := w.Wait()
	require.ErrorIs(t, err, ErrMonitorStopped)
	assert.Equal(t, models.RunRunning, last.Status)

	select {
	case <-w.Done():
	default:
		t.Fatal("watcher still running")
	}
}

func TestMonitor_StopFromUpdate(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("GetRun", mock.Anything, int64(3)).Return(run(3, models.RunRunning), nil)

	stopped := make(chan struct{})

	var w *Watcher
	ready := make(chan struct{})

	w = NewOrchestrator(runAPI, Config{PollInterval: testInterval}).Monitor(t.Context(), 3, func(*models.WorkflowRun) {
		<-ready
		w.Stop()
		close(stopped)
	})
	close(ready)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked inside the update callback")
	}

	last, err := w.Wait()
	require.ErrorIs(t, err, ErrMonitorStopped)
	assert.Equal(t, models.RunRunning, last.Status)
	runAPI.AssertNumberOfCalls(t, "GetRun", 1)
}

func TestMonitor_PublishesStatusChanges(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("GetRun", mock.Anything, int64(5)).Return(run(5, models.RunRunning), nil).Twice()
	runAPI.On("GetRun", mock.Anything, int64(5)).Return(run(5, models.RunFailed), nil).Once()

	var (
		mu      sync.Mutex
		changes []events.RunStatusChanged
	)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "5", mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()

		changes = append(changes, args.Get(2).(events.RunStatusChanged))
	}).Return(nil)

	w := NewOrchestrator(runAPI, Config{PollInterval: testInterval, Publisher: bus}).Monitor(t.Context(), 5, nil)

	_, err := w.Wait()
	require.NoError(t, err)

	require.Len(t, changes, 2)
	assert.Equal(t, models.RunStatus(""), changes[0].Previous)
	assert.Equal(t, models.RunRunning, changes[0].Status)
	assert.Equal(t, models.RunRunning, changes[1].Previous)
	assert.Equal(t, models.RunFailed, changes[1].Status)
	assert.True(t, changes[1].Terminal)
	assert.Equal(t, int64(3), changes[1].WorkflowID)
}

func TestOrchestrator_ListRuns(t *testing.T) {
	runAPI := &mocks.MockRunAPI{}
	runAPI.On("ListRuns", mock.Anything, int64(3)).Return([]models.WorkflowRun{*run(2, models.RunFailed), *run(1, models.RunCompleted)}, nil)
	runAPI.On("ListRuns", mock.Anything, int64(4)).Return(nil, errors.New("boom"))

	o := NewOrchestrator(runAPI, Config{})

	runs, err := o.ListRuns(t.Context(), 3)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	_, err = o.ListRuns(t.Context(), 4)
	assert.Error(t, err)
}
