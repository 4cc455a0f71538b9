package store

import (
	"context"
)

type Workflow struct {
	WorkflowID      int64
	WorkflowAgentID int64
	Name            string
	Description     string
	// Git repository path
	Repository string
	// Git branch built on push triggers
	PushBranch string
	// Manifest path within the repository
	ManifestPath string
	// Required toolchain provider and version range
	ToolchainKey        *string
	ToolchainMinVersion *string
	ToolchainMaxVersion *string
	ToolchainAttributes int64
	// Workflow schedule in cron syntax
	Schedule *string
	// Git branch for scheduled jobs
	ScheduleBranch *string
	// Scheduled job ID
	ScheduleJobID *string
}

// WorkflowRunData is everything the job queue needs to provision a job
// for a workflow: repository, manifest, toolchain requirements and the
// agent plus its optional SSH credential.
type WorkflowRunData struct {
	WorkflowID          int64
	AgentID             int64
	OSType              string
	CredentialID        *int64
	Repository          string
	PushBranch          string
	ManifestPath        string
	ToolchainKey        *string
	ToolchainMinVersion *string
	ToolchainMaxVersion *string
	ToolchainAttributes int64
	Hostname            string
	Workspace           string
	Username            *string
	SSHPrivateKeyHash   *string
	SSHPrivateKey       []byte
}

type WorkflowStore interface {
	CreateWorkflow(
		context.Context,
		int64,
		string,
		string,
		string,
		string,
		string,
	) (*Workflow, error)
	ReadWorkflowByID(context.Context, int64) (*Workflow, error)
	ReadWorkflowRunData(context.Context, int64) (*WorkflowRunData, error)
	UpdateWorkflow(context.Context, int64, int64, string, string, string, string, string) error
	UpdateWorkflowToolchain(context.Context, int64, *string, *string, *string, int64) error
	UpdateWorkflowSchedule(context.Context, int64, *string, *string, *string) error
	UpdateWorkflowScheduleJobID(context.Context, int64, *string) error
	DeleteWorkflow(context.Context, int64) error
	ListWorkflows(context.Context) ([]*Workflow, error)
	ListScheduledWorkflows(context.Context) ([]*Workflow, error)
}
