package store

import (
	"context"
	"time"
)

type TriggerKind string

const (
	TriggerPullRequest  TriggerKind = "pull_request"
	TriggerPush         TriggerKind = "push"
	TriggerWorkflowCall TriggerKind = "workflow_call"
)

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCancelled JobStatus = "cancelled"
	StatusFailed    JobStatus = "failed"
	StatusPassed    JobStatus = "passed"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
	StepPassed  StepStatus = "passed"
)

type Job struct {
	JobID            int64 `param:"job_id"`
	JobWorkflowID    int64
	TriggerKind      TriggerKind
	Branch           string
	Revision         string
	ReleaseBuild     bool `db:"release_build"`
	Status           JobStatus
	WorkingDirectory *string
	Output           *string
	Artifacts        *string
	CreatedOn        time.Time
	StartedOn        *time.Time
	EndedOn          *time.Time

	WorkflowName string
}

type JobStep struct {
	JobStepID int64
	StepJobID int64
	Ordinal   int64
	Name      string
	Status    StepStatus
	ExitCode  int64
	StartedOn *time.Time
	EndedOn   *time.Time
}

type JobStore interface {
	CreateJob(context.Context, int64, TriggerKind, string, string, bool) (*Job, error)
	ReadJobByID(context.Context, int64) (*Job, error)
	UpdateJobStartedOn(context.Context, int64, string, JobStatus, *time.Time) error
	UpdateJobEndedOn(context.Context, int64, JobStatus, *string, *string, *time.Time) error
	AppendJobOutput(context.Context, int64, string) error
	DeleteJob(context.Context, int64) error
	ListWorkflowJobs(context.Context, int64) ([]Job, error)
	ListLatestWorkflowJobs(context.Context, int64, int64) ([]Job, error)
	ListWorkflowJobsPaginated(context.Context, int64, int64, int64) ([]Job, error)
	CountWorkflowJobs(context.Context, int64) (int64, error)
	PruneJobs(context.Context, time.Time) (int64, error)

	CreateJobStep(context.Context, int64, int64, string, StepStatus) (*JobStep, error)
	UpdateJobStep(context.Context, int64, StepStatus, int64, *time.Time, *time.Time) error
	ListJobSteps(context.Context, int64) ([]JobStep, error)
}
