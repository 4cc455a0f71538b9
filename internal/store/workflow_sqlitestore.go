package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type WorkflowSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewWorkflowSQLiteStore(rdb, rwdb *sql.DB) *WorkflowSQLiteStore {
	return &WorkflowSQLiteStore{rdb, rwdb}
}

func (store *WorkflowSQLiteStore) CreateWorkflow(
	ctx context.Context,
	agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) (*Workflow, error) {
	w := &Workflow{
		WorkflowAgentID: agentID,
		Name:            name,
		Description:     description,
		Repository:      repository,
		PushBranch:      pushBranch,
		ManifestPath:    manifestPath,
	}
	query := `insert into workflows (
		workflow_agent_id,
		name,
		description,
		repository,
		push_branch,
		manifest_path
	)
	values ($1, $2, $3, $4, $5, $6)
	returning workflow_id`
	if err := sqlscan.Get(
		ctx, store.rwdb, w, query,
		w.WorkflowAgentID,
		w.Name,
		w.Description,
		w.Repository,
		w.PushBranch,
		w.ManifestPath,
	); err != nil {
		return nil, err
	}
	return w, nil
}

func (store *WorkflowSQLiteStore) ReadWorkflowByID(
	ctx context.Context,
	id int64,
) (*Workflow, error) {
	w := new(Workflow)
	query := "select * from workflows where workflow_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, w, query, id); err != nil {
		return nil, err
	}
	return w, nil
}

func (store *WorkflowSQLiteStore) ReadWorkflowRunData(
	ctx context.Context,
	id int64,
) (*WorkflowRunData, error) {
	wrd := new(WorkflowRunData)
	query := `select
		w.workflow_id,
		w.repository,
		w.push_branch,
		w.manifest_path,
		w.toolchain_key,
		w.toolchain_min_version,
		w.toolchain_max_version,
		w.toolchain_attributes,
		a.agent_id,
		a.os_type,
		a.hostname,
		a.workspace,
		c.credential_id,
		c.username,
		c.ssh_private_key_hash
	from workflows w
	join agents a
	on w.workflow_agent_id = a.agent_id
	left join credentials c
	on a.agent_credential_id = c.credential_id
	where w.workflow_id = $1`
	err := sqlscan.Get(ctx, store.rdb, wrd, query, id)
	if err != nil {
		return nil, err
	}
	return wrd, nil
}

func (store *WorkflowSQLiteStore) UpdateWorkflow(
	ctx context.Context,
	id, agentID int64,
	name, description, repository, pushBranch, manifestPath string,
) error {
	query := `update workflows
	set workflow_agent_id = $1,
		name = $2,
		description = $3,
		repository = $4,
		push_branch = $5,
		manifest_path = $6
	where workflow_id = $7`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		agentID,
		name,
		description,
		repository,
		pushBranch,
		manifestPath,
		id,
	)
	return err
}

func (store *WorkflowSQLiteStore) UpdateWorkflowToolchain(
	ctx context.Context,
	id int64,
	toolchainKey, minVersion, maxVersion *string,
	attributes int64,
) error {
	query := `update workflows
	set toolchain_key = $1,
		toolchain_min_version = $2,
		toolchain_max_version = $3,
		toolchain_attributes = $4
	where workflow_id = $5`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		toolchainKey,
		minVersion,
		maxVersion,
		attributes,
		id,
	)
	return err
}

func (store *WorkflowSQLiteStore) UpdateWorkflowSchedule(
	ctx context.Context,
	id int64,
	schedule, branch, jobID *string,
) error {
	query := `update workflows
	set schedule = $1,
		schedule_branch = $2,
		schedule_job_id = $3
	where workflow_id = $4`
	_, err := store.rwdb.ExecContext(ctx, query, schedule, branch, jobID, id)
	return err
}

func (store *WorkflowSQLiteStore) UpdateWorkflowScheduleJobID(
	ctx context.Context,
	id int64,
	jobID *string,
) error {
	query := `update workflows
	set schedule_job_id = $1
	where workflow_id = $2`
	_, err := store.rwdb.ExecContext(ctx, query, jobID, id)
	return err
}

func (store *WorkflowSQLiteStore) DeleteWorkflow(ctx context.Context, id int64) error {
	query := "delete from workflows where workflow_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *WorkflowSQLiteStore) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	query := "select * from workflows"
	workflows := make([]*Workflow, 0)
	err := sqlscan.Select(ctx, store.rdb, &workflows, query)
	return workflows, err
}

func (store *WorkflowSQLiteStore) ListScheduledWorkflows(ctx context.Context) ([]*Workflow, error) {
	query := "select * from workflows where schedule is not null"
	workflows := make([]*Workflow, 0)
	err := sqlscan.Select(ctx, store.rdb, &workflows, query)
	return workflows, err
}
