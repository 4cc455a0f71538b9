package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/service"
	"github.com/oxhollow/ferrite/internal/store"
	"github.com/oxhollow/ferrite/internal/util"
	"github.com/labstack/echo/v4"
)

const maxJobsPerPage int64 = 10

func SetupWorkflowRoutes(
	g *echo.Group,
	workflowService WorkflowServicer,
	apiKeyService TriggerKeyServicer,
) {
	h := NewWorkflowHandler(workflowService, apiKeyService)
	g.POST(
		"/api/workflows/:workflow_id/events",
		h.PostWorkflowTriggerEvent,
	)
	workflowsGroup := g.Group("/api/workflows", IsAuthenticated)
	workflowsGroup.GET("", h.GetWorkflows)
	workflowsGroup.POST("", h.PostWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.GET("/:workflow_id", h.GetWorkflow)
	workflowsGroup.PATCH("/:workflow_id", h.PatchWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.DELETE("/:workflow_id", h.DeleteWorkflow, RoleMiddleware(store.Admin))
	workflowsGroup.PATCH(
		"/:workflow_id/toolchain", h.PatchWorkflowToolchain, RoleMiddleware(store.Admin),
	)
	workflowsGroup.PATCH(
		"/:workflow_id/schedule", h.PatchWorkflowSchedule, RoleMiddleware(store.Admin),
	)
	workflowsGroup.POST("/:workflow_id/jobs", h.PostWorkflowJob)
	workflowsGroup.GET("/:workflow_id/jobs", h.GetWorkflowJobs)
	workflowsGroup.GET("/:workflow_id/jobs/latest", h.GetLatestWorkflowJobs)
	workflowsGroup.GET("/:workflow_id/jobs/:job_id", h.GetWorkflowJob)
	workflowsGroup.GET("/:workflow_id/jobs/:job_id/steps", h.GetWorkflowJobSteps)
	workflowsGroup.GET("/:workflow_id/jobs/:job_id/output", h.GetWorkflowJobOutput)
	workflowsGroup.GET("/:workflow_id/jobs/:job_id/status", h.GetWorkflowJobStatus)
	workflowsGroup.GET("/:workflow_id/jobs/:job_id/artifacts", h.GetWorkflowJobArtifacts)
	workflowsGroup.POST("/:workflow_id/jobs/:job_id/cancel", h.PostCancelWorkflowJob)
}

type WorkflowWriter interface {
	CreateWorkflow(
		ctx context.Context,
		agentID int64,
		name, description, repository, pushBranch, manifestPath string,
	) (*store.Workflow, error)
	UpdateWorkflow(
		ctx context.Context,
		workflowID, agentID int64,
		name, description, repository, pushBranch, manifestPath string,
	) error
	UpdateWorkflowToolchain(
		ctx context.Context,
		workflowID int64,
		toolchainKey, minVersion, maxVersion *string,
		attributes int64,
	) error
	UpdateWorkflowSchedule(ctx context.Context, id int64, schedule, branch *string) error
	UpdateWorkflowScheduleJobID(ctx context.Context, id int64, jobID *string) error
	DeleteWorkflow(ctx context.Context, workflowID int64) error
}

type WorkflowReader interface {
	GetWorkflowByID(
		ctx context.Context,
		workflowID int64,
	) (*store.Workflow, error)
	GetWorkflowAndAgents(ctx context.Context, id int64) (*store.Workflow, []*store.Agent, error)
	ListWorkflows(ctx context.Context) ([]*store.Workflow, error)
	ListScheduledWorkflows(ctx context.Context) ([]*store.Workflow, error)
	CollectJobArtifacts(ctx context.Context, workflowID, jobID int64) (string, error)
}

type JobWriter interface {
	TriggerJob(
		ctx context.Context,
		workflowID int64,
		event service.TriggerEvent,
	) (*store.Job, error)
	DeleteJob(ctx context.Context, jobID int64) error
}

type JobReader interface {
	GetJobByID(ctx context.Context, jobID int64) (*store.Job, error)
	ListWorkflowJobs(ctx context.Context, workflowID int64) ([]store.Job, error)
	ListLatestWorkflowJobs(ctx context.Context, workflowID, limit int64) ([]store.Job, error)
	ListWorkflowJobsPaginated(ctx context.Context, workflowID, limit, offset int64) ([]store.Job, error)
	GetWorkflowJobCount(ctx context.Context, id int64) (int64, error)
	ListJobSteps(ctx context.Context, jobID int64) ([]store.JobStep, error)
}

type JobQueueServicer interface {
	InitializeJobQueues(ctx context.Context) error
	AddJobQueues(ids []int64, maxJobs int64)
	AddJobQueue(id int64, maxJobs int64)
	GetWorkflowJobQueue(id int64) (*service.JobQueue, bool)
	RemoveJobQueue(id int64)
	EnqueueJob(j *store.Job) error
	CancelJob(workflowID, jobID int64)
	ShutdownAll()
}

type WorkflowServicer interface {
	WorkflowWriter
	WorkflowReader
	JobWriter
	JobReader
	JobQueueServicer

	ScheduleWorkflowJob(workflowID int64, schedule, branch string) (*string, error)
}

type TriggerKeyServicer interface {
	GetAPIKeyByValue(ctx context.Context, value string) (*store.APIKey, error)
}

type WorkflowHandler struct {
	workflowService WorkflowServicer
	apiKeyService   TriggerKeyServicer
}

func NewWorkflowHandler(
	workflowService WorkflowServicer,
	apiKeyService TriggerKeyServicer,
) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
		apiKeyService:   apiKeyService,
	}
}

func (h *WorkflowHandler) GetWorkflows(c echo.Context) error {
	workflows, err := h.workflowService.ListWorkflows(c.Request().Context())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err,
			http.StatusInternalServerError, "something went wrong listing workflows",
		)
	}

	return c.JSON(http.StatusOK, workflows)
}

func (h *WorkflowHandler) PostWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	wp.Name = strings.TrimSpace(wp.Name)
	wp.Description = strings.TrimSpace(wp.Description)
	wp.ManifestPath = strings.TrimSpace(wp.ManifestPath)

	w, err := h.workflowService.CreateWorkflow(
		c.Request().Context(),
		wp.WorkflowAgentID,
		wp.Name,
		wp.Description,
		wp.Repository,
		wp.PushBranch,
		wp.ManifestPath,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return newError(c, err,
				http.StatusConflict,
				fmt.Sprintf("A workflow with the name %s already exists", wp.Name),
			)
		}
		return newError(c, err,
			http.StatusInternalServerError, "Unable to create workflow",
		)
	}

	return c.JSON(http.StatusCreated, w)
}

func (h *WorkflowHandler) GetWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	w, err := h.workflowService.GetWorkflowByID(c.Request().Context(), wp.WorkflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "workflow not found")
		}
		return newError(c, err,
			http.StatusInternalServerError,
			"something went wrong getting workflow data",
		)
	}

	return c.JSON(http.StatusOK, w)
}

func (h *WorkflowHandler) PatchWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	wp.Name = strings.TrimSpace(wp.Name)
	wp.Description = strings.TrimSpace(wp.Description)
	wp.ManifestPath = strings.TrimSpace(wp.ManifestPath)

	err := h.workflowService.UpdateWorkflow(
		c.Request().Context(),
		wp.WorkflowID,
		wp.WorkflowAgentID,
		wp.Name,
		wp.Description,
		wp.Repository,
		wp.PushBranch,
		wp.ManifestPath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "workflow not found")
		}
		return newError(c, err,
			http.StatusInternalServerError,
			"something went wrong updating the workflow",
		)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) PatchWorkflowToolchain(c echo.Context) error {
	tp := new(ToolchainParams)
	if err := c.Bind(tp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid toolchain data")
	}

	if err := h.workflowService.UpdateWorkflowToolchain(
		c.Request().Context(),
		tp.WorkflowID,
		tp.Key,
		tp.MinVersion,
		tp.MaxVersion,
		tp.Attributes,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "workflow not found")
		}
		return newError(c, err, http.StatusBadRequest, "invalid toolchain requirement")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) PatchWorkflowSchedule(c echo.Context) error {
	sp := new(ScheduleParams)
	if err := c.Bind(sp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	if err := h.workflowService.UpdateWorkflowSchedule(
		c.Request().Context(), sp.WorkflowID, sp.Schedule, sp.Branch,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusBadRequest, "invalid workflow id")
		}
		return newError(
			c, err, http.StatusInternalServerError, "unable to update workflow schedule",
		)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) DeleteWorkflow(c echo.Context) error {
	wp := new(WorkflowParams)
	if err := c.Bind(wp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	if wp.WorkflowID == 0 {
		return newError(c, errors.New("workflow id was zero"),
			http.StatusBadRequest, "invalid workflow id",
		)
	}

	w, err := h.workflowService.GetWorkflowByID(c.Request().Context(), wp.WorkflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "workflow not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to delete workflow")
	}

	if err := h.workflowService.DeleteWorkflow(
		c.Request().Context(), w.WorkflowID,
	); err != nil {
		return newError(c, err, http.StatusInternalServerError, "unable to delete workflow")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *WorkflowHandler) PostWorkflowJob(c echo.Context) error {
	tp := new(TriggerParams)
	if err := c.Bind(tp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid trigger data")
	}

	j, err := h.workflowService.TriggerJob(
		c.Request().Context(),
		tp.WorkflowID,
		service.TriggerEvent{
			Kind:     store.TriggerKind(tp.Kind),
			Branch:   tp.Branch,
			Revision: tp.Revision,
			Release:  tp.Release,
		},
	)
	if err != nil {
		var full service.ErrJobQueueFull
		if errors.As(err, &full) {
			return newError(c, err, http.StatusTooManyRequests, "workflow job queue is full")
		}
		return newError(c, err, http.StatusBadRequest, "unable to trigger workflow job")
	}

	return c.JSON(http.StatusCreated, j)
}

// PostWorkflowTriggerEvent is the unauthenticated trigger endpoint for
// forges and other workflows. Callers identify with an API key header.
func (h *WorkflowHandler) PostWorkflowTriggerEvent(c echo.Context) error {
	apiKeyValue := c.Request().Header.Get(internal.TriggerKeyHeader)
	tp := new(TriggerParams)
	if err := c.Bind(tp); err != nil {
		return echo.NewHTTPError(
			http.StatusBadRequest, "invalid trigger data",
		)
	}

	if _, err := h.apiKeyService.GetAPIKeyByValue(
		c.Request().Context(), apiKeyValue,
	); err != nil {
		return echo.NewHTTPError(
			http.StatusUnauthorized, "invalid api key",
		)
	}

	w, err := h.workflowService.GetWorkflowByID(c.Request().Context(), tp.WorkflowID)
	if err != nil {
		return echo.NewHTTPError(
			http.StatusNotFound, "workflow not found",
		)
	}

	j, err := h.workflowService.TriggerJob(
		c.Request().Context(),
		w.WorkflowID,
		service.TriggerEvent{
			Kind:     store.TriggerKind(tp.Kind),
			Branch:   tp.Branch,
			Revision: tp.Revision,
			Release:  tp.Release,
		},
	)
	if err != nil {
		var full service.ErrJobQueueFull
		if errors.As(err, &full) {
			return echo.NewHTTPError(
				http.StatusTooManyRequests, "workflow job queue is full",
			).WithInternal(err)
		}
		return echo.NewHTTPError(
			http.StatusBadRequest, "unable to trigger workflow job",
		).WithInternal(err)
	}

	return c.JSON(http.StatusCreated, j)
}

func (h *WorkflowHandler) GetWorkflowJob(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	j, err := h.workflowService.GetJobByID(c.Request().Context(), jp.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "job not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read job data")
	}

	return c.JSON(http.StatusOK, j)
}

func (h *WorkflowHandler) GetWorkflowJobSteps(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	steps, err := h.workflowService.ListJobSteps(c.Request().Context(), jp.JobID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err, http.StatusInternalServerError, "unable to list job steps")
	}

	return c.JSON(http.StatusOK, steps)
}

func (h *WorkflowHandler) GetLatestWorkflowJobs(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow data")
	}

	jobs, err := h.workflowService.ListLatestWorkflowJobs(
		c.Request().Context(), jp.WorkflowID, 3,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err, http.StatusBadRequest, "unable to list workflow jobs")
	}

	return c.JSON(http.StatusOK, jobs)
}

func (h *WorkflowHandler) GetWorkflowJobs(c echo.Context) error {
	ljp := new(ListJobsParams)
	if err := c.Bind(ljp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid request data")
	}

	count, err := h.workflowService.GetWorkflowJobCount(c.Request().Context(), ljp.WorkflowID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err, http.StatusInternalServerError, "unable to count workflow jobs")
	}

	maxPages := count / maxJobsPerPage
	if maxPages >= 1 {
		maxPages++
	}

	page := max(ljp.Page, 1)
	jobs, err := h.workflowService.ListWorkflowJobsPaginated(
		c.Request().Context(),
		ljp.WorkflowID,
		maxJobsPerPage,
		(page-1)*maxJobsPerPage,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusInternalServerError, "error listing workflow jobs")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"jobs":      jobs,
		"page":      page,
		"max_pages": maxPages,
		"count":     count,
	})
}

func (h *WorkflowHandler) GetWorkflowJobArtifacts(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	artifactsDir, err := h.workflowService.CollectJobArtifacts(
		c.Request().Context(),
		jp.WorkflowID,
		jp.JobID,
	)
	if err != nil {
		return newError(
			c, err,
			http.StatusInternalServerError, "unable to collect job artifacts",
		)
	}

	archive := path.Join("artifacts", fmt.Sprintf("%d.zip", jp.JobID))
	if exists, _ := util.PathExists(archive); !exists {
		archive, err = util.ArchiveDirectory(artifactsDir)
		if err != nil {
			return newError(
				c, err,
				http.StatusInternalServerError, "unable to archive collected output",
			)
		}
	}

	return c.File(archive)
}

func (h *WorkflowHandler) GetWorkflowJobOutput(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	jq, ok := h.workflowService.GetWorkflowJobQueue(jp.WorkflowID)
	if !ok {
		return nil
	}

	id := uuid.NewString()

	jq.OutputSSEClients.AddClient(id)
	defer jq.OutputSSEClients.RemoveClient(id)

	for {
		select {
		case <-c.Request().Context().Done():
			// client disconnected
			return nil
		case out := <-jq.OutputSSEClients.GetClient(id):
			// worker's output channel has data
			event := &Event{Data: []byte(out)}
			if err := event.MarshalTo(w); err != nil {
				log.Println("err marshaling event data:", err)
			}
			w.Flush()
		default:
			// no new data, just wait
			time.Sleep(1 * time.Second)
		}
	}
}

func (h *WorkflowHandler) GetWorkflowJobStatus(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	jq, ok := h.workflowService.GetWorkflowJobQueue(jp.WorkflowID)
	if !ok {
		return nil
	}

	id := uuid.NewString()
	jq.StatusSSEClients.AddClient(id)

	defer func() {
		jq.StatusSSEClients.RemoveClient(id)
	}()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case j := <-jq.StatusSSEClients.GetClient(id):
			if j.JobID != jp.JobID {
				continue
			}
			b, err := json.Marshal(j)
			if err != nil {
				log.Println("err marshaling job status:", err)
				continue
			}
			event := &Event{Data: b}
			if err := event.MarshalTo(w); err != nil {
				log.Println("err marshaling event data:", err)
			}
			w.Flush()
		default:
			time.Sleep(3 * time.Second)
		}
	}
}

func (h *WorkflowHandler) PostCancelWorkflowJob(c echo.Context) error {
	jp := new(JobParams)
	if err := c.Bind(jp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid workflow or job ID")
	}

	if _, ok := h.workflowService.GetWorkflowJobQueue(jp.WorkflowID); !ok {
		return newError(c, nil, http.StatusNotFound, "workflow job queue not found")
	}

	h.workflowService.CancelJob(jp.WorkflowID, jp.JobID)

	return c.NoContent(http.StatusAccepted)
}

// ScheduleWorkflows re-registers cron triggers for workflows that carried
// a schedule before the server restarted.
func ScheduleWorkflows(workflowService WorkflowServicer) {
	scheduledWorkflows, err := workflowService.ListScheduledWorkflows(context.Background())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Fatal(err)
	}
	for _, w := range scheduledWorkflows {
		jobID, err := workflowService.ScheduleWorkflowJob(
			w.WorkflowID, *w.Schedule, *w.ScheduleBranch,
		)
		if err != nil {
			log.Println("err re-scheduling workflow:", err)
			continue
		}
		if err := workflowService.UpdateWorkflowScheduleJobID(
			context.Background(), w.WorkflowID, jobID,
		); err != nil {
			log.Println("err updating re-scheduled workflow job id:", err)
		}
	}
}
