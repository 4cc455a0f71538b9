package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/oxhollow/ferrite/internal"
	"github.com/oxhollow/ferrite/internal/depend"
	"github.com/oxhollow/ferrite/internal/security"
	"github.com/oxhollow/ferrite/internal/store"
	"github.com/oxhollow/ferrite/internal/util"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type WorkflowWriter interface {
	CreateWorkflow(
		context.Context,
		int64,
		string, string, string, string, string,
	) (*store.Workflow, error)
	UpdateWorkflow(context.Context, int64, int64, string, string, string, string, string) error
	UpdateWorkflowToolchain(context.Context, int64, *string, *string, *string, int64) error
	UpdateWorkflowSchedule(context.Context, int64, *string, *string, *string) error
	UpdateWorkflowScheduleJobID(context.Context, int64, *string) error
	DeleteWorkflow(context.Context, int64) error
}

type WorkflowReader interface {
	ReadWorkflowByID(context.Context, int64) (*store.Workflow, error)
	ReadWorkflowRunData(context.Context, int64) (*store.WorkflowRunData, error)
	ListWorkflows(context.Context) ([]*store.Workflow, error)
	ListScheduledWorkflows(context.Context) ([]*store.Workflow, error)
}

type WorkflowStore interface {
	WorkflowWriter
	WorkflowReader
}

type JobWriter interface {
	CreateJob(context.Context, int64, store.TriggerKind, string, string, bool) (*store.Job, error)
	UpdateJobStartedOn(context.Context, int64, string, store.JobStatus, *time.Time) error
	UpdateJobEndedOn(context.Context, int64, store.JobStatus, *string, *string, *time.Time) error
	AppendJobOutput(context.Context, int64, string) error
	DeleteJob(context.Context, int64) error
	PruneJobs(context.Context, time.Time) (int64, error)
	CreateJobStep(context.Context, int64, int64, string, store.StepStatus) (*store.JobStep, error)
	UpdateJobStep(context.Context, int64, store.StepStatus, int64, *time.Time, *time.Time) error
}

type JobReader interface {
	ReadJobByID(context.Context, int64) (*store.Job, error)
	ListWorkflowJobs(context.Context, int64) ([]store.Job, error)
	ListLatestWorkflowJobs(context.Context, int64, int64) ([]store.Job, error)
	ListWorkflowJobsPaginated(context.Context, int64, int64, int64) ([]store.Job, error)
	CountWorkflowJobs(context.Context, int64) (int64, error)
	ListJobSteps(context.Context, int64) ([]store.JobStep, error)
}

type JobStore interface {
	JobWriter
	JobReader
}

type WorkflowService struct {
	workflowStore   WorkflowStore
	jobStore        JobStore
	credentialStore CredentialStore
	agentStore      store.AgentStore
	apiKeyStore     store.APIKeyStore
	registry        *depend.Registry
	scheduler       gocron.Scheduler
	aesEncrypter    security.Encrypter

	mu     sync.Mutex
	queues map[int64]*JobQueue
}

func NewWorkflowService(
	workflowStore WorkflowStore,
	jobStore JobStore,
	credentialStore CredentialStore,
	agentStore store.AgentStore,
	apiKeyStore store.APIKeyStore,
	registry *depend.Registry,
	scheduler gocron.Scheduler,
	aesEncrypter security.Encrypter,
) *WorkflowService {
	return &WorkflowService{
		workflowStore:   workflowStore,
		jobStore:        jobStore,
		credentialStore: credentialStore,
		agentStore:      agentStore,
		apiKeyStore:     apiKeyStore,
		registry:        registry,
		scheduler:       scheduler,
		aesEncrypter:    aesEncrypter,
		queues:          make(map[int64]*JobQueue),
	}
}

func (s *WorkflowService) InitializeJobQueues(ctx context.Context) error {
	workflows, err := s.ListWorkflows(ctx)
	if err != nil {
		return err
	}

	ids := make([]int64, len(workflows))
	for i, w := range workflows {
		ids[i] = w.WorkflowID
	}

	s.AddJobQueues(ids, internal.Config.QueueSize)
	s.StartJobQueues()
	return nil
}

func (s *WorkflowService) CreateWorkflow(
	ctx context.Context,
	agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) (*store.Workflow, error) {
	if pushBranch == "" {
		pushBranch = "main"
	}
	if manifestPath == "" {
		manifestPath = internal.DefaultManifestPath
	}
	w, err := s.workflowStore.CreateWorkflow(
		ctx,
		agentID,
		name,
		description,
		repository,
		pushBranch,
		manifestPath,
	)
	if err != nil {
		return nil, err
	}
	s.AddJobQueue(w.WorkflowID, internal.Config.QueueSize)
	if err := s.StartJobQueue(w.WorkflowID); err != nil {
		return w, err
	}
	return w, nil
}

func (s *WorkflowService) GetWorkflowByID(
	ctx context.Context,
	workflowID int64,
) (*store.Workflow, error) {
	return s.workflowStore.ReadWorkflowByID(ctx, workflowID)
}

func (s *WorkflowService) GetWorkflowAndAgents(
	ctx context.Context,
	id int64,
) (*store.Workflow, []*store.Agent, error) {
	w, err := s.workflowStore.ReadWorkflowByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	agents, err := s.agentStore.ListAgents(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}
	return w, agents, nil
}

func (s *WorkflowService) GetWorkflowRunData(
	ctx context.Context,
	id int64,
) (*store.WorkflowRunData, error) {
	wrd, err := s.workflowStore.ReadWorkflowRunData(ctx, id)
	if err != nil {
		return nil, err
	}

	if wrd.SSHPrivateKeyHash != nil {
		privateKey, err := s.aesEncrypter.DecryptAES(*wrd.SSHPrivateKeyHash)
		if err != nil {
			return nil, err
		}
		wrd.SSHPrivateKey = privateKey
	}

	return wrd, nil
}

// CheckToolchain verifies the workflow's required toolchain against the
// provider registry before any job step runs.
func (s *WorkflowService) CheckToolchain(
	ctx context.Context,
	wrd *store.WorkflowRunData,
) error {
	if s.registry == nil || wrd.ToolchainKey == nil {
		return nil
	}

	var minVersion, maxVersion *depend.Version
	if wrd.ToolchainMinVersion != nil {
		v, err := depend.ParseVersion(*wrd.ToolchainMinVersion)
		if err != nil {
			return ToolchainError{Message: "invalid minimum version", Err: err}
		}
		minVersion = &v
	}
	if wrd.ToolchainMaxVersion != nil {
		v, err := depend.ParseVersion(*wrd.ToolchainMaxVersion)
		if err != nil {
			return ToolchainError{Message: "invalid maximum version", Err: err}
		}
		maxVersion = &v
	}

	missing := []depend.Dependency{}
	err := s.registry.CheckDependency(
		ctx,
		*wrd.ToolchainKey,
		minVersion, maxVersion,
		depend.Attributes(wrd.ToolchainAttributes),
		&missing,
	)
	if errors.Is(err, depend.ErrNotFound) {
		return ToolchainError{
			Message: fmt.Sprintf(
				"provider %s is not registered or outside the required version range",
				*wrd.ToolchainKey,
			),
		}
	}
	return err
}

func (s *WorkflowService) ListWorkflows(
	ctx context.Context,
) ([]*store.Workflow, error) {
	workflows, err := s.workflowStore.ListWorkflows(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return workflows, nil
}

func (s *WorkflowService) ListWorkflowsAndAgents(
	ctx context.Context,
) ([]*store.Workflow, []*store.Agent, error) {
	workflows, err := s.workflowStore.ListWorkflows(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}
	agents, err := s.agentStore.ListAgents(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}
	return workflows, agents, nil
}

func (s *WorkflowService) ListScheduledWorkflows(
	ctx context.Context,
) ([]*store.Workflow, error) {
	workflows, err := s.workflowStore.ListScheduledWorkflows(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return workflows, nil
}

func (s *WorkflowService) UpdateWorkflow(
	ctx context.Context,
	workflowID, agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) error {
	return s.workflowStore.UpdateWorkflow(
		ctx,
		workflowID,
		agentID,
		name,
		description,
		repository,
		pushBranch,
		manifestPath,
	)
}

func (s *WorkflowService) UpdateWorkflowToolchain(
	ctx context.Context,
	workflowID int64,
	toolchainKey, minVersion, maxVersion *string,
	attributes int64,
) error {
	if minVersion != nil {
		if _, err := depend.ParseVersion(*minVersion); err != nil {
			return err
		}
	}
	if maxVersion != nil {
		if _, err := depend.ParseVersion(*maxVersion); err != nil {
			return err
		}
	}
	return s.workflowStore.UpdateWorkflowToolchain(
		ctx, workflowID, toolchainKey, minVersion, maxVersion, attributes,
	)
}

func (s *WorkflowService) UpdateWorkflowSchedule(
	ctx context.Context,
	id int64,
	schedule, branch *string,
) error {
	w, err := s.workflowStore.ReadWorkflowByID(ctx, id)
	if err != nil {
		return err
	}

	if schedule == nil {
		if w.Schedule == nil {
			return nil
		}
		s.removeScheduledJob(w)
		return s.workflowStore.UpdateWorkflowSchedule(ctx, w.WorkflowID, nil, nil, nil)
	}

	if branch == nil {
		return fmt.Errorf("workflow schedule requires a branch")
	}

	jobID, err := s.ScheduleWorkflowJob(w.WorkflowID, *schedule, *branch)
	if err != nil {
		return err
	}
	return s.workflowStore.UpdateWorkflowSchedule(
		ctx,
		w.WorkflowID,
		schedule,
		branch,
		jobID,
	)
}

func (s *WorkflowService) removeScheduledJob(w *store.Workflow) {
	if s.scheduler == nil || w.ScheduleJobID == nil {
		return
	}
	jobID, err := uuid.Parse(*w.ScheduleJobID)
	if err != nil {
		log.Println("invalid scheduled job id: ", err)
		return
	}
	if err := s.scheduler.RemoveJob(jobID); err != nil {
		log.Println("unable to remove existing job: ", err)
	}
}

func (s *WorkflowService) UpdateWorkflowScheduleJobID(
	ctx context.Context,
	workflowID int64,
	jobID *string,
) error {
	return s.workflowStore.UpdateWorkflowScheduleJobID(ctx, workflowID, jobID)
}

func (s *WorkflowService) DeleteWorkflow(
	ctx context.Context, workflowID int64,
) error {
	err := s.workflowStore.DeleteWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	s.RemoveJobQueue(workflowID)
	return nil
}

// TriggerJob creates a job for a trigger event and puts it on the
// workflow's queue. A push without a branch builds the workflow's push
// branch; a push to any other branch is rejected by the branch filter.
func (s *WorkflowService) TriggerJob(
	ctx context.Context,
	workflowID int64,
	event TriggerEvent,
) (*store.Job, error) {
	switch event.Kind {
	case store.TriggerPullRequest, store.TriggerPush, store.TriggerWorkflowCall:
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", event.Kind)
	}
	if event.Kind != store.TriggerWorkflowCall && event.Release {
		return nil, fmt.Errorf("release builds can only be requested by workflow_call")
	}
	if event.Kind == store.TriggerPullRequest && event.Branch == "" {
		return nil, fmt.Errorf("pull_request trigger requires a branch")
	}

	if event.Kind == store.TriggerPush || event.Branch == "" {
		w, err := s.workflowStore.ReadWorkflowByID(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if event.Branch == "" {
			event.Branch = w.PushBranch
		}
		if event.Kind == store.TriggerPush && event.Branch != w.PushBranch {
			return nil, fmt.Errorf(
				"push to %q does not match the workflow push branch %q",
				event.Branch, w.PushBranch,
			)
		}
	}

	j, err := s.jobStore.CreateJob(
		ctx, workflowID, event.Kind, event.Branch, event.Revision, event.Release,
	)
	if err != nil {
		return nil, err
	}
	if err := s.EnqueueJob(j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *WorkflowService) AppendJobOutput(
	ctx context.Context,
	jobID int64,
	out string,
) error {
	return s.jobStore.AppendJobOutput(ctx, jobID, out)
}

func (s *WorkflowService) CollectJobArtifacts(
	ctx context.Context,
	workflowID, jobID int64,
) (string, error) {
	if exists, _ := util.PathExists("artifacts"); !exists {
		os.Mkdir("artifacts", os.ModePerm)
	}

	w, err := s.GetWorkflowByID(ctx, workflowID)
	if err != nil {
		return "", err
	}
	a, err := s.agentStore.ReadAgentByID(ctx, w.WorkflowAgentID)
	if err != nil {
		return "", err
	}
	j, err := s.GetJobByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	if j.WorkingDirectory == nil {
		return "", fmt.Errorf("job %d has not started", jobID)
	}

	artifactsDir := path.Join("artifacts", fmt.Sprintf("%d", j.JobID))
	if exists, _ := util.PathExists(artifactsDir); exists {
		return artifactsDir, nil
	}
	if err := os.Mkdir(artifactsDir, os.ModePerm); err != nil {
		return "", err
	}

	baseDir := path.Join(a.Workspace, *j.WorkingDirectory, repositoryDir(w.Repository))

	if a.AgentCredentialID == nil {
		return artifactsDir, s.collectLocalArtifacts(baseDir, artifactsDir, w.ManifestPath)
	}
	return artifactsDir, s.collectRemoteArtifacts(ctx, a, baseDir, artifactsDir, w.ManifestPath)
}

func (s *WorkflowService) collectLocalArtifacts(
	baseDir, artifactsDir, manifestPath string,
) error {
	artifacts := internal.DefaultArtifactsPath
	if content, err := os.ReadFile(filepath.Join(baseDir, manifestPath)); err == nil {
		m := new(Manifest)
		if err := yaml.Unmarshal(content, m); err == nil && m.Artifacts != "" {
			artifacts = m.Artifacts
		}
	}
	return copyDirectory(
		filepath.Join(baseDir, artifacts),
		filepath.Join(artifactsDir, artifacts),
	)
}

func (s *WorkflowService) collectRemoteArtifacts(
	ctx context.Context,
	a *store.Agent,
	baseDir, artifactsDir, manifestPath string,
) error {
	c, err := s.credentialStore.ReadCredentialByID(ctx, *a.AgentCredentialID)
	if err != nil {
		return err
	}
	privateKey, err := s.aesEncrypter.DecryptAES(c.SSHPrivateKeyHash)
	if err != nil {
		return err
	}
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return err
	}
	cc := &ssh.ClientConfig{
		User:            c.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	hostname := a.Hostname
	if !strings.Contains(hostname, ":") {
		hostname += ":22"
	}
	client, err := ssh.Dial("tcp", hostname, cc)
	if err != nil {
		return err
	}
	defer client.Close()

	artifacts := internal.DefaultArtifactsPath
	sess, err := client.NewSession()
	if err != nil {
		return err
	}
	if output, err := sess.Output(
		fmt.Sprintf("cd %s && cat %s", baseDir, manifestPath),
	); err == nil {
		m := new(Manifest)
		if err := yaml.Unmarshal(output, m); err == nil && m.Artifacts != "" {
			artifacts = m.Artifacts
		}
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	return recursiveDownload(
		sftpClient,
		filepath.Join(baseDir, artifacts),
		filepath.Join(artifactsDir, artifacts),
	)
}

func copyDirectory(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dstDir, os.ModePerm); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())
		dstPath := filepath.Join(dstDir, entry.Name())
		if entry.IsDir() {
			if err := copyDirectory(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		src, err := os.Open(srcPath)
		if err != nil {
			return err
		}
		dst, err := os.Create(dstPath)
		if err != nil {
			src.Close()
			return err
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			dst.Close()
			return err
		}
		src.Close()
		dst.Close()
	}
	return nil
}

func recursiveDownload(sftpClient *sftp.Client, remotePath, localPath string) error {
	files, err := sftpClient.ReadDir(remotePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(localPath, os.ModePerm); err != nil {
		return err
	}

	for _, f := range files {
		remoteFilePath := filepath.Join(remotePath, f.Name())
		localFilePath := filepath.Join(localPath, f.Name())

		if f.IsDir() {
			if err := recursiveDownload(
				sftpClient, remoteFilePath, localFilePath,
			); err != nil {
				return err
			}
		} else {
			if err := downloadFile(
				sftpClient, remoteFilePath, localFilePath,
			); err != nil {
				return err
			}
		}
	}

	return nil
}

func downloadFile(sftpClient *sftp.Client, remotePath, localPath string) error {
	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return err
	}
	defer remoteFile.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer localFile.Close()

	if _, err := io.Copy(localFile, remoteFile); err != nil {
		return err
	}

	return nil
}

func (s *WorkflowService) GetJobByID(
	ctx context.Context, jobID int64,
) (*store.Job, error) {
	return s.jobStore.ReadJobByID(ctx, jobID)
}

func (s *WorkflowService) UpdateJobStartedOn(
	ctx context.Context,
	jobID int64,
	workingDirectory string,
	status store.JobStatus,
	startedOn *time.Time,
) error {
	return s.jobStore.UpdateJobStartedOn(
		ctx, jobID, workingDirectory, status, startedOn,
	)
}

func (s *WorkflowService) UpdateJobEndedOn(
	ctx context.Context,
	jobID int64,
	status store.JobStatus,
	output, artifacts *string,
	endedOn *time.Time,
) error {
	return s.jobStore.UpdateJobEndedOn(
		ctx, jobID, status, output, artifacts, endedOn,
	)
}

func (s *WorkflowService) DeleteJob(
	ctx context.Context, jobID int64,
) error {
	return s.jobStore.DeleteJob(ctx, jobID)
}

func (s *WorkflowService) CreateJobStep(
	ctx context.Context,
	jobID, ordinal int64,
	name string,
	status store.StepStatus,
) (*store.JobStep, error) {
	return s.jobStore.CreateJobStep(ctx, jobID, ordinal, name, status)
}

func (s *WorkflowService) UpdateJobStep(
	ctx context.Context,
	stepID int64,
	status store.StepStatus,
	exitCode int64,
	startedOn, endedOn *time.Time,
) error {
	return s.jobStore.UpdateJobStep(ctx, stepID, status, exitCode, startedOn, endedOn)
}

func (s *WorkflowService) ListJobSteps(
	ctx context.Context,
	jobID int64,
) ([]store.JobStep, error) {
	return s.jobStore.ListJobSteps(ctx, jobID)
}

func (s *WorkflowService) ListWorkflowJobs(
	ctx context.Context,
	workflowID int64,
) ([]store.Job, error) {
	jobs, err := s.jobStore.ListWorkflowJobs(ctx, workflowID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return jobs, nil
}

func (s *WorkflowService) ListLatestWorkflowJobs(
	ctx context.Context,
	workflowID, limit int64,
) ([]store.Job, error) {
	return s.jobStore.ListLatestWorkflowJobs(ctx, workflowID, limit)
}

func (s *WorkflowService) ListWorkflowJobsPaginated(
	ctx context.Context,
	workflowID, limit, offset int64,
) ([]store.Job, error) {
	return s.jobStore.ListWorkflowJobsPaginated(
		ctx, workflowID, limit, offset,
	)
}

func (s *WorkflowService) GetWorkflowJobCount(
	ctx context.Context, id int64,
) (int64, error) {
	return s.jobStore.CountWorkflowJobs(ctx, id)
}

func (s *WorkflowService) GetAPIKeyByValue(
	ctx context.Context,
	value string,
) (*store.APIKey, error) {
	return s.apiKeyStore.ReadAPIKeyByValue(ctx, value)
}

// ScheduleWorkflowJob registers a cron schedule that triggers a push job
// on the configured branch.
func (s *WorkflowService) ScheduleWorkflowJob(
	workflowID int64,
	schedule, branch string,
) (*string, error) {
	if s.scheduler == nil {
		return nil, nil
	}
	job, err := s.scheduler.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() {
			event := TriggerEvent{Kind: store.TriggerPush, Branch: branch}
			if _, err := s.TriggerJob(
				context.Background(),
				workflowID,
				event,
			); err != nil {
				log.Println("err triggering scheduled job:", err)
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("error scheduling workflow job: %w", err)
	}
	return util.AsPtr(job.ID().String()), nil
}

// ScheduleJobRetention registers a daily cleanup that prunes finished
// jobs older than the configured retention.
func (s *WorkflowService) ScheduleJobRetention(retentionDays int64) error {
	if s.scheduler == nil || retentionDays <= 0 {
		return nil
	}
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -int(retentionDays))
			pruned, err := s.jobStore.PruneJobs(context.Background(), cutoff)
			if err != nil {
				log.Println("err pruning jobs:", err)
				return
			}
			if pruned > 0 {
				log.Printf("pruned %d finished jobs older than %d days\n", pruned, retentionDays)
			}
		}))
	return err
}

func (s *WorkflowService) AddJobQueues(ids []int64, maxJobs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.queues[id] = NewJobQueue(s, maxJobs)
	}
}

func (s *WorkflowService) StartJobQueues() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queues {
		go s.queues[i].Run()
	}
}

func (s *WorkflowService) AddJobQueue(id int64, maxJobs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[id] = NewJobQueue(s, maxJobs)
}

func (s *WorkflowService) StartJobQueue(id int64) error {
	jq, ok := s.GetWorkflowJobQueue(id)
	if !ok {
		return fmt.Errorf("job queue for workflow %d does not exist", id)
	}
	go jq.Run()
	return nil
}

func (s *WorkflowService) GetWorkflowJobQueue(id int64) (*JobQueue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jq, ok := s.queues[id]
	return jq, ok
}

func (s *WorkflowService) RemoveJobQueue(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, id)
}

func (s *WorkflowService) EnqueueJob(j *store.Job) error {
	jq, ok := s.GetWorkflowJobQueue(j.JobWorkflowID)
	if !ok {
		return fmt.Errorf("job queue for workflow %d does not exist", j.JobWorkflowID)
	}

	return jq.Enqueue(j)
}

func (s *WorkflowService) CancelJob(workflowID, jobID int64) {
	if jq, ok := s.GetWorkflowJobQueue(workflowID); ok {
		jq.CancelJob(jobID)
	}
}

func (s *WorkflowService) ShutdownAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var wg sync.WaitGroup
	for _, jq := range s.queues {
		jq := jq
		wg.Add(1)
		go func() {
			defer wg.Done()
			jq.Shutdown()
		}()
	}
	wg.Wait()
}
