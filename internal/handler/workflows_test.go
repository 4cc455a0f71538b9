package handler

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/service"
	"github.com/oxhollow/ferrite/internal/store"
	"github.com/oxhollow/ferrite/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) CreateWorkflow(
	ctx context.Context,
	agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) (*store.Workflow, error) {
	args := m.Called(ctx, agentID, name, description, repository, pushBranch, manifestPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) UpdateWorkflow(
	ctx context.Context,
	workflowID, agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) error {
	args := m.Called(ctx, workflowID, agentID, name, description, repository, pushBranch, manifestPath)
	return args.Error(0)
}

func (m *MockWorkflowService) UpdateWorkflowToolchain(
	ctx context.Context,
	workflowID int64,
	toolchainKey, minVersion, maxVersion *string,
	attributes int64,
) error {
	args := m.Called(ctx, workflowID, toolchainKey, minVersion, maxVersion, attributes)
	return args.Error(0)
}

func (m *MockWorkflowService) UpdateWorkflowSchedule(
	ctx context.Context, id int64, schedule, branch *string,
) error {
	args := m.Called(ctx, id, schedule, branch)
	return args.Error(0)
}

func (m *MockWorkflowService) UpdateWorkflowScheduleJobID(
	ctx context.Context, id int64, jobID *string,
) error {
	args := m.Called(ctx, id, jobID)
	return args.Error(0)
}

func (m *MockWorkflowService) DeleteWorkflow(ctx context.Context, workflowID int64) error {
	args := m.Called(ctx, workflowID)
	return args.Error(0)
}

func (m *MockWorkflowService) GetWorkflowByID(
	ctx context.Context, workflowID int64,
) (*store.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) GetWorkflowAndAgents(
	ctx context.Context, id int64,
) (*store.Workflow, []*store.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*store.Workflow), args.Get(1).([]*store.Agent), args.Error(2)
}

func (m *MockWorkflowService) ListWorkflows(ctx context.Context) ([]*store.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) ListScheduledWorkflows(
	ctx context.Context,
) ([]*store.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Workflow), args.Error(1)
}

func (m *MockWorkflowService) CollectJobArtifacts(
	ctx context.Context, workflowID, jobID int64,
) (string, error) {
	args := m.Called(ctx, workflowID, jobID)
	return args.String(0), args.Error(1)
}

func (m *MockWorkflowService) TriggerJob(
	ctx context.Context,
	workflowID int64,
	event service.TriggerEvent,
) (*store.Job, error) {
	args := m.Called(ctx, workflowID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Job), args.Error(1)
}

func (m *MockWorkflowService) DeleteJob(ctx context.Context, jobID int64) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockWorkflowService) GetJobByID(
	ctx context.Context, jobID int64,
) (*store.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Job), args.Error(1)
}

func (m *MockWorkflowService) ListWorkflowJobs(
	ctx context.Context, workflowID int64,
) ([]store.Job, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Job), args.Error(1)
}

func (m *MockWorkflowService) ListLatestWorkflowJobs(
	ctx context.Context, workflowID, limit int64,
) ([]store.Job, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Job), args.Error(1)
}

func (m *MockWorkflowService) ListWorkflowJobsPaginated(
	ctx context.Context, workflowID, limit, offset int64,
) ([]store.Job, error) {
	args := m.Called(ctx, workflowID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Job), args.Error(1)
}

func (m *MockWorkflowService) GetWorkflowJobCount(
	ctx context.Context, id int64,
) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorkflowService) ListJobSteps(
	ctx context.Context, jobID int64,
) ([]store.JobStep, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.JobStep), args.Error(1)
}

func (m *MockWorkflowService) InitializeJobQueues(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockWorkflowService) AddJobQueues(ids []int64, maxJobs int64) {
	m.Called(ids, maxJobs)
}

func (m *MockWorkflowService) AddJobQueue(id int64, maxJobs int64) {
	m.Called(id, maxJobs)
}

func (m *MockWorkflowService) GetWorkflowJobQueue(id int64) (*service.JobQueue, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*service.JobQueue), args.Bool(1)
}

func (m *MockWorkflowService) RemoveJobQueue(id int64) {
	m.Called(id)
}

func (m *MockWorkflowService) EnqueueJob(j *store.Job) error {
	args := m.Called(j)
	return args.Error(0)
}

func (m *MockWorkflowService) CancelJob(workflowID, jobID int64) {
	m.Called(workflowID, jobID)
}

func (m *MockWorkflowService) ShutdownAll() {
	m.Called()
}

func (m *MockWorkflowService) ScheduleWorkflowJob(
	workflowID int64, schedule, branch string,
) (*string, error) {
	args := m.Called(workflowID, schedule, branch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func TestWorkflowHandler_PostWorkflow(t *testing.T) {
	t.Run("success - workflow created", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		mockService := new(MockWorkflowService)
		mockService.On(
			"CreateWorkflow", mock.Anything, workflow.WorkflowAgentID,
			workflow.Name, workflow.Description, workflow.Repository,
			workflow.PushBranch, workflow.ManifestPath,
		).Return(workflow, nil)

		e := echo.New()
		body := fmt.Sprintf(
			`{"workflow_agent_id": %d, "name": %q, "description": %q, "repository": %q, "push_branch": %q, "manifest_path": %q}`,
			workflow.WorkflowAgentID, workflow.Name, workflow.Description,
			workflow.Repository, workflow.PushBranch, workflow.ManifestPath,
		)
		req := httptest.NewRequest(http.MethodPost, "/api/workflows", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostWorkflow(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), workflow.Name)
	})
}

func TestWorkflowHandler_GetWorkflow(t *testing.T) {
	t.Run("failure - workflow not found", func(t *testing.T) {
		// arrange
		workflowID := rand.Int63()
		mockService := new(MockWorkflowService)
		mockService.On("GetWorkflowByID", mock.Anything, workflowID).Return(nil, sql.ErrNoRows)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet, fmt.Sprintf("/api/workflows/%d", workflowID), nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.GetWorkflow(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestWorkflowHandler_DeleteWorkflow(t *testing.T) {
	t.Run("success - workflow deleted", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		mockService := new(MockWorkflowService)
		mockService.On("GetWorkflowByID", mock.Anything, workflow.WorkflowID).Return(workflow, nil)
		mockService.On("DeleteWorkflow", mock.Anything, workflow.WorkflowID).Return(nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodDelete, fmt.Sprintf("/api/workflows/%d", workflow.WorkflowID), nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.DeleteWorkflow(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
	t.Run("failure - zero workflow id", func(t *testing.T) {
		// arrange
		mockService := new(MockWorkflowService)
		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/workflows/0", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues("0")
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.DeleteWorkflow(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestWorkflowHandler_PatchWorkflowToolchain(t *testing.T) {
	t.Run("success - toolchain requirement updated", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		key := "rustc"
		minVersion := "1.74.0"
		mockService := new(MockWorkflowService)
		mockService.On(
			"UpdateWorkflowToolchain", mock.Anything, workflow.WorkflowID,
			&key, &minVersion, (*string)(nil), int64(0x100),
		).Return(nil)

		e := echo.New()
		body := fmt.Sprintf(
			`{"key": %q, "min_version": %q, "attributes": %d}`, key, minVersion, 0x100,
		)
		req := httptest.NewRequest(
			http.MethodPatch,
			fmt.Sprintf("/api/workflows/%d/toolchain", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PatchWorkflowToolchain(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestWorkflowHandler_PostWorkflowJob(t *testing.T) {
	t.Run("success - push job triggered", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerPush)
		mockService := new(MockWorkflowService)
		mockService.On(
			"TriggerJob", mock.Anything, workflow.WorkflowID,
			service.TriggerEvent{Kind: store.TriggerPush, Branch: "main"},
		).Return(job, nil)

		e := echo.New()
		body := `{"kind": "push", "branch": "main"}`
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/jobs", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostWorkflowJob(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
	t.Run("failure - queue full", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		mockService := new(MockWorkflowService)
		mockService.On(
			"TriggerJob", mock.Anything, workflow.WorkflowID, mock.Anything,
		).Return(nil, service.NewErrJobQueueFull())

		e := echo.New()
		body := `{"kind": "push", "branch": "main"}`
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/jobs", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostWorkflowJob(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
	})
	t.Run("failure - release build outside workflow_call", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		mockService := new(MockWorkflowService)
		mockService.On(
			"TriggerJob", mock.Anything, workflow.WorkflowID,
			service.TriggerEvent{Kind: store.TriggerPush, Branch: "main", Release: true},
		).Return(nil, fmt.Errorf("release builds can only be requested by workflow_call"))

		e := echo.New()
		body := `{"kind": "push", "branch": "main", "release": true}`
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/jobs", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostWorkflowJob(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestWorkflowHandler_PostWorkflowTriggerEvent(t *testing.T) {
	t.Run("success - workflow_call release triggered with api key", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerWorkflowCall)
		apiKey := generateAPIKey()
		mockService := new(MockWorkflowService)
		mockService.On("GetWorkflowByID", mock.Anything, workflow.WorkflowID).Return(workflow, nil)
		mockService.On(
			"TriggerJob", mock.Anything, workflow.WorkflowID,
			service.TriggerEvent{
				Kind: store.TriggerWorkflowCall, Branch: "main", Release: true,
			},
		).Return(job, nil)
		mockAPIKeyService := new(testutil.MockAPIKeyService)
		mockAPIKeyService.On(
			"GetAPIKeyByValue", mock.Anything, apiKey.Value,
		).Return(apiKey, nil)

		e := echo.New()
		body := `{"kind": "workflow_call", "branch": "main", "release": true}`
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/events", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(internal.TriggerKeyHeader, apiKey.Value)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, mockAPIKeyService)

		// act
		err := h.PostWorkflowTriggerEvent(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
	t.Run("failure - invalid api key", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		mockService := new(MockWorkflowService)
		mockAPIKeyService := new(testutil.MockAPIKeyService)
		mockAPIKeyService.On(
			"GetAPIKeyByValue", mock.Anything, "invalid-key",
		).Return(nil, sql.ErrNoRows)

		e := echo.New()
		body := `{"kind": "push"}`
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/events", workflow.WorkflowID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(internal.TriggerKeyHeader, "invalid-key")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, mockAPIKeyService)

		// act
		err := h.PostWorkflowTriggerEvent(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})
}

func TestWorkflowHandler_GetWorkflowJobs(t *testing.T) {
	t.Run("success - second page listed", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerPush)
		mockService := new(MockWorkflowService)
		mockService.On(
			"GetWorkflowJobCount", mock.Anything, workflow.WorkflowID,
		).Return(int64(25), nil)
		mockService.On(
			"ListWorkflowJobsPaginated", mock.Anything,
			workflow.WorkflowID, maxJobsPerPage, int64(10),
		).Return([]store.Job{*job}, nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet,
			fmt.Sprintf("/api/workflows/%d/jobs?page=2", workflow.WorkflowID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id")
		c.SetParamValues(fmt.Sprintf("%d", workflow.WorkflowID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.GetWorkflowJobs(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), job.Branch)
		assert.Contains(t, rec.Body.String(), `"page":2`)
	})
}

func TestWorkflowHandler_GetWorkflowJob(t *testing.T) {
	t.Run("success - job found", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerPullRequest)
		mockService := new(MockWorkflowService)
		mockService.On("GetJobByID", mock.Anything, job.JobID).Return(job, nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet,
			fmt.Sprintf("/api/workflows/%d/jobs/%d", workflow.WorkflowID, job.JobID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id", "job_id")
		c.SetParamValues(
			fmt.Sprintf("%d", workflow.WorkflowID), fmt.Sprintf("%d", job.JobID),
		)
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.GetWorkflowJob(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), job.Branch)
	})
}

func TestWorkflowHandler_GetWorkflowJobSteps(t *testing.T) {
	t.Run("success - steps listed in order", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerPush)
		steps := []store.JobStep{
			{JobStepID: 1, StepJobID: job.JobID, Ordinal: 0, Name: service.StepCheckout, Status: store.StepPassed},
			{JobStepID: 2, StepJobID: job.JobID, Ordinal: 1, Name: service.StepToolchain, Status: store.StepPassed},
			{JobStepID: 3, StepJobID: job.JobID, Ordinal: 2, Name: service.StepFmtCheck, Status: store.StepFailed, ExitCode: 1},
		}
		mockService := new(MockWorkflowService)
		mockService.On("ListJobSteps", mock.Anything, job.JobID).Return(steps, nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet,
			fmt.Sprintf("/api/workflows/%d/jobs/%d/steps", workflow.WorkflowID, job.JobID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id", "job_id")
		c.SetParamValues(
			fmt.Sprintf("%d", workflow.WorkflowID), fmt.Sprintf("%d", job.JobID),
		)
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.GetWorkflowJobSteps(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), service.StepFmtCheck)
	})
}

func TestWorkflowHandler_PostCancelWorkflowJob(t *testing.T) {
	t.Run("success - cancellation requested", func(t *testing.T) {
		// arrange
		workflow := generateWorkflow(rand.Int63())
		job := generateJob(workflow.WorkflowID, store.TriggerPush)
		jq := service.NewJobQueue(nil, 1)
		mockService := new(MockWorkflowService)
		mockService.On("GetWorkflowJobQueue", workflow.WorkflowID).Return(jq, true)
		mockService.On("CancelJob", workflow.WorkflowID, job.JobID)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/jobs/%d/cancel", workflow.WorkflowID, job.JobID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id", "job_id")
		c.SetParamValues(
			fmt.Sprintf("%d", workflow.WorkflowID), fmt.Sprintf("%d", job.JobID),
		)
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostCancelWorkflowJob(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		mockService.AssertCalled(t, "CancelJob", workflow.WorkflowID, job.JobID)
	})
	t.Run("failure - queue not found", func(t *testing.T) {
		// arrange
		workflowID := rand.Int63()
		jobID := rand.Int63()
		mockService := new(MockWorkflowService)
		mockService.On("GetWorkflowJobQueue", workflowID).Return(nil, false)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/api/workflows/%d/jobs/%d/cancel", workflowID, jobID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("workflow_id", "job_id")
		c.SetParamValues(fmt.Sprintf("%d", workflowID), fmt.Sprintf("%d", jobID))
		h := NewWorkflowHandler(mockService, nil)

		// act
		err := h.PostCancelWorkflowJob(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func generateWorkflow(agentID int64) *store.Workflow {
	return &store.Workflow{
		WorkflowID:      rand.Int63(),
		WorkflowAgentID: agentID,
		Name:            fmt.Sprintf("testworkflow%d", time.Now().UnixNano()),
		Description:     "test workflow",
		Repository:      "git@example.com:testuser/testrepo.git",
		PushBranch:      "main",
		ManifestPath:    internal.DefaultManifestPath,
	}
}

func generateJob(workflowID int64, kind store.TriggerKind) *store.Job {
	return &store.Job{
		JobID:         rand.Int63(),
		JobWorkflowID: workflowID,
		TriggerKind:   kind,
		Branch:        "main",
		Status:        store.StatusQueued,
		CreatedOn:     time.Now().UTC(),
	}
}
