package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/store"
)

type JobServicer interface {
	GetWorkflowRunData(context.Context, int64) (*store.WorkflowRunData, error)
	CheckToolchain(context.Context, *store.WorkflowRunData) error
	GetJobByID(context.Context, int64) (*store.Job, error)
	UpdateJobStartedOn(context.Context, int64, string, store.JobStatus, *time.Time) error
	UpdateJobEndedOn(context.Context, int64, store.JobStatus, *string, *string, *time.Time) error
	AppendJobOutput(context.Context, int64, string) error
	CreateJobStep(context.Context, int64, int64, string, store.StepStatus) (*store.JobStep, error)
	UpdateJobStep(context.Context, int64, store.StepStatus, int64, *time.Time, *time.Time) error
}

func NewJobQueue(jobService JobServicer, maxJobs int64) *JobQueue {
	return &JobQueue{
		jobService:       jobService,
		OutputSSEClients: NewSSEClientMap[string](),
		StatusSSEClients: NewSSEClientMap[store.Job](),
		queue:            make(chan *store.Job, maxJobs),
		done:             make(chan struct{}),
		cancelJobMap:     NewCancelMap[int64](),
	}
}

// JobQueue runs one workflow's jobs sequentially in queue order.
type JobQueue struct {
	jobService       JobServicer
	OutputSSEClients *SSEClientMap[string]
	StatusSSEClients *SSEClientMap[store.Job]

	queue        chan *store.Job
	done         chan struct{}
	cancelJobMap *CancelMap[int64]

	outputCh chan string
	statusCh chan store.Job
	mu       sync.Mutex
}

func (jq *JobQueue) CancelJob(jobID int64) {
	jq.cancelJobMap.Call(jobID)
}

func (jq *JobQueue) Enqueue(j *store.Job) error {
	select {
	case jq.queue <- j:
		return nil
	default:
		return NewErrJobQueueFull()
	}
}

func (jq *JobQueue) Run() {
	for {
		select {
		case job := <-jq.queue:
			jq.outputCh = make(chan string)
			jq.statusCh = make(chan store.Job)

			ctx, cancel := context.WithCancel(context.Background())
			jq.cancelJobMap.AddCancel(job.JobID, cancel)

			go jq.handleOutput(ctx, job.JobID)
			go jq.handleStatus()

			if err := jq.processJob(ctx, job); err != nil {
				endedOn := time.Now().UTC()
				job.EndedOn = &endedOn
				if _, ok := err.(JobCancelError); ok {
					job.Status = store.StatusCancelled
				} else {
					job.Status = store.StatusFailed
				}
				if sqlErr := jq.jobService.UpdateJobEndedOn(
					context.Background(),
					job.JobID,
					job.Status,
					job.Output,
					job.Artifacts,
					job.EndedOn,
				); sqlErr != nil {
					log.Println("err updating job status to failed:", errors.Join(err, sqlErr))
				}
				log.Println("err processing job:", err)
				j, err := jq.jobService.GetJobByID(context.Background(), job.JobID)
				if err != nil {
					log.Println("err getting job by id")
				} else {
					job = j
					jq.statusCh <- *j
				}

				failMessage := `
=============================================
FAIL || Job execution failed.
=============================================
`
				jq.outputCh <- failMessage
			}

			close(jq.outputCh)
			close(jq.statusCh)
			jq.cancelJobMap.RemoveCancel(job.JobID)
		case <-jq.done:
			close(jq.queue)
			return
		}
	}
}

func (jq *JobQueue) Shutdown() {
	jq.mu.Lock()
	defer jq.mu.Unlock()
	select {
	case <-jq.done:
	default:
		close(jq.done)
	}
}

func (jq *JobQueue) handleOutput(ctx context.Context, jobID int64) {
	for out := range jq.outputCh {
		if err := jq.jobService.AppendJobOutput(ctx, jobID, out); err != nil {
			log.Printf("err appending job output: %+v\n", err)
		}
		jq.OutputSSEClients.SendToClients(out)
	}
}

func (jq *JobQueue) handleStatus() {
	for j := range jq.statusCh {
		jq.StatusSSEClients.SendToClients(j)
	}
}

func (jq *JobQueue) processJob(
	ctx context.Context,
	job *store.Job,
) error {
	wrd, err := jq.jobService.GetWorkflowRunData(ctx, job.JobWorkflowID)
	if err != nil {
		jq.outputCh <- fmt.Sprintf("err getting workflow/agent/credential: %+v\n", err)
		return err
	}

	// toolchain pre-flight against the provider registry
	if err := jq.jobService.CheckToolchain(ctx, wrd); err != nil {
		jq.outputCh <- fmt.Sprintf("%v\n", err)
		return err
	}

	workdir := time.Now().UTC().Format(internal.RunDirLayout)

	job.Status = store.StatusRunning
	startedOn := time.Now().UTC()
	job.StartedOn = &startedOn

	if err := jq.jobService.UpdateJobStartedOn(
		context.Background(),
		job.JobID,
		workdir,
		job.Status,
		job.StartedOn,
	); err != nil {
		jq.outputCh <- "err updating job started on"
		return err
	}

	j, err := jq.jobService.GetJobByID(context.Background(), job.JobID)
	if err != nil {
		jq.outputCh <- "err getting job by ID"
		return err
	}
	job = j
	jq.statusCh <- *j

	executor := newExecutor(wrd)
	defer executor.Close()

	jobDir := path.Join(wrd.Workspace, workdir)
	if err := executor.Prepare(ctx, jobDir); err != nil {
		jq.outputCh <- fmt.Sprintf("%v\n", err)
		return err
	}

	event := TriggerEvent{
		Kind:     job.TriggerKind,
		Branch:   job.Branch,
		Revision: job.Revision,
		Release:  job.ReleaseBuild,
	}
	steps := BuildSteps(event)
	jq.outputCh <- fmt.Sprintf(
		"Triggered by %s on branch %s. Starting job execution...\n",
		event.Kind, event.Branch,
	)

	records := make([]*store.JobStep, len(steps))
	for i, step := range steps {
		record, err := jq.jobService.CreateJobStep(
			ctx, job.JobID, int64(i), step.Name, store.StepPending)
		if err != nil {
			jq.outputCh <- "err creating job step records"
			return err
		}
		records[i] = record
	}

	repoDir := path.Join(jobDir, repositoryDir(wrd.Repository))

	if err := jq.executeSteps(ctx, executor, wrd, event, jobDir, repoDir, steps, records); err != nil {
		jq.outputCh <- fmt.Sprintf("err executing job steps: %+v\n", err)
		return err
	}

	passMessage := `
=============================================
PASS || Executed job steps successfully.
=============================================
`
	jq.outputCh <- passMessage

	job.Status = store.StatusPassed
	endedOn := time.Now().UTC()
	job.EndedOn = &endedOn
	if err := jq.jobService.UpdateJobEndedOn(
		context.Background(),
		job.JobID,
		job.Status,
		job.Output,
		job.Artifacts,
		job.EndedOn,
	); err != nil {
		jq.outputCh <- "err updating job ended on"
		return err
	}

	j, err = jq.jobService.GetJobByID(context.Background(), job.JobID)
	if err != nil {
		jq.outputCh <- "err getting job by id"
		return err
	}

	job = j
	jq.statusCh <- *j

	return nil
}

// executeSteps runs the planned steps in order and stops at the first
// failure. Remaining steps are recorded as skipped.
func (jq *JobQueue) executeSteps(
	ctx context.Context,
	executor Executor,
	wrd *store.WorkflowRunData,
	event TriggerEvent,
	jobDir, repoDir string,
	steps []Step,
	records []*store.JobStep,
) error {
	for i, step := range steps {
		if step.Skip {
			jq.outputCh <- fmt.Sprintf("  |  Skipping step '%s'\n", step.Name)
			if err := jq.jobService.UpdateJobStep(
				ctx, records[i].JobStepID, store.StepSkipped, 0, nil, nil,
			); err != nil {
				return err
			}
			continue
		}

		jq.outputCh <- fmt.Sprintf("  |  Executing step '%s'\n", step.Name)
		startedOn := time.Now().UTC()
		if err := jq.jobService.UpdateJobStep(
			ctx, records[i].JobStepID, store.StepRunning, 0, &startedOn, nil,
		); err != nil {
			return err
		}

		exitCode, runErr := jq.executeStep(ctx, executor, wrd, event, jobDir, repoDir, steps, i)

		endedOn := time.Now().UTC()
		status := store.StepPassed
		if runErr != nil || exitCode != 0 {
			status = store.StepFailed
		}
		if err := jq.jobService.UpdateJobStep(
			ctx, records[i].JobStepID, status, exitCode, &startedOn, &endedOn,
		); err != nil {
			return err
		}

		if status == store.StepFailed {
			jq.skipRemaining(ctx, records[i+1:])
			return stepFailure(wrd.Repository, step, exitCode, runErr)
		}
	}
	return nil
}

func (jq *JobQueue) executeStep(
	ctx context.Context,
	executor Executor,
	wrd *store.WorkflowRunData,
	event TriggerEvent,
	jobDir, repoDir string,
	steps []Step,
	i int,
) (int64, error) {
	step := steps[i]
	switch step.Name {
	case StepCheckout:
		exitCode, err := jq.checkout(ctx, executor, wrd, event, jobDir, repoDir, step)
		if err != nil || exitCode != 0 {
			return exitCode, err
		}
		// the manifest is only readable once the repository exists
		jq.readManifest(ctx, executor, wrd, repoDir, steps)
		return 0, nil
	default:
		return executor.Run(
			ctx,
			repoDir,
			step.Command(),
			time.Duration(step.TimeoutSeconds)*time.Second,
			jq.outputCh,
		)
	}
}

func (jq *JobQueue) checkout(
	ctx context.Context,
	executor Executor,
	wrd *store.WorkflowRunData,
	event TriggerEvent,
	jobDir, repoDir string,
	step Step,
) (int64, error) {
	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	clone := fmt.Sprintf("git clone -b %s %s", event.Branch, wrd.Repository)
	exitCode, err := executor.Run(ctx, jobDir, clone, timeout, jq.outputCh)
	if err != nil {
		return exitCode, err
	}
	if exitCode != 0 {
		return exitCode, nil
	}
	if event.Revision != "" {
		exitCode, err = executor.Run(
			ctx,
			repoDir,
			fmt.Sprintf("git checkout %s", event.Revision),
			timeout,
			jq.outputCh,
		)
		if err != nil || exitCode != 0 {
			return exitCode, err
		}
	}
	jq.outputCh <- fmt.Sprintf("Cloned repository %s\n", wrd.Repository)
	return 0, nil
}

// readManifest overlays the repository manifest onto the remaining
// steps. A repository without a manifest builds with the defaults.
func (jq *JobQueue) readManifest(
	ctx context.Context,
	executor Executor,
	wrd *store.WorkflowRunData,
	repoDir string,
	steps []Step,
) {
	content, exitCode, err := captureOutput(
		ctx,
		executor,
		repoDir,
		fmt.Sprintf("cat %s", wrd.ManifestPath),
		10*time.Second,
	)
	if err != nil || exitCode != 0 {
		jq.outputCh <- fmt.Sprintf("No manifest at %s, using defaults\n", wrd.ManifestPath)
		return
	}

	m := new(Manifest)
	if err := yaml.Unmarshal([]byte(content), m); err != nil {
		jq.outputCh <- fmt.Sprintf("err unmarshaling manifest yaml: %+v\n", err)
		return
	}
	ApplyManifest(steps, m)
	jq.outputCh <- "Parsed build manifest\n"
}

func stepFailure(repository string, step Step, exitCode int64, runErr error) error {
	if runErr != nil {
		if _, ok := runErr.(JobCancelError); ok {
			return runErr
		}
	}
	switch step.Name {
	case StepCheckout:
		if runErr != nil {
			return CheckoutError{Repository: repository, Err: runErr}
		}
		return CheckoutError{
			Repository: repository,
			Err:        fmt.Errorf("git exited with code %d", exitCode),
		}
	case StepToolchain:
		if runErr != nil {
			return ToolchainError{Message: "setup failed", Err: runErr}
		}
		return ToolchainError{
			Message: fmt.Sprintf("setup failed with exit code %d", exitCode),
		}
	default:
		if runErr != nil {
			return runErr
		}
		return StepError{Step: step.Name, ExitCode: exitCode}
	}
}

func (jq *JobQueue) skipRemaining(ctx context.Context, records []*store.JobStep) {
	for _, record := range records {
		if err := jq.jobService.UpdateJobStep(
			ctx, record.JobStepID, store.StepSkipped, 0, nil, nil,
		); err != nil {
			log.Printf("err marking step skipped: %+v\n", err)
		}
	}
}

func newExecutor(wrd *store.WorkflowRunData) Executor {
	if wrd.CredentialID == nil {
		return NewLocalExecutor()
	}
	var username string
	if wrd.Username != nil {
		username = *wrd.Username
	}
	return NewSSHExecutor(wrd.Hostname, username, wrd.SSHPrivateKey)
}

func captureOutput(
	ctx context.Context,
	executor Executor,
	dir, command string,
	timeout time.Duration,
) (string, int64, error) {
	outputCh := make(chan string)
	collected := make(chan struct{})
	var b strings.Builder
	go func() {
		defer close(collected)
		for out := range outputCh {
			b.WriteString(out)
		}
	}()
	exitCode, err := executor.Run(ctx, dir, command, timeout, outputCh)
	close(outputCh)
	<-collected
	return b.String(), exitCode, err
}

func repositoryDir(repository string) string {
	dir := repository[strings.LastIndex(repository, "/")+1:]
	return strings.TrimSuffix(dir, ".git")
}
