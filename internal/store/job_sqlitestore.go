package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/oxhollow/ferrite/internal"
)

type JobSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewJobSQLiteStore(rdb, rwdb *sql.DB) *JobSQLiteStore {
	return &JobSQLiteStore{rdb, rwdb}
}

func (store *JobSQLiteStore) CreateJob(
	ctx context.Context,
	workflowID int64,
	trigger TriggerKind,
	branch, revision string,
	releaseBuild bool,
) (*Job, error) {
	j := &Job{
		JobWorkflowID: workflowID,
		TriggerKind:   trigger,
		Branch:        branch,
		Revision:      revision,
		ReleaseBuild:  releaseBuild,
		Status:        StatusQueued,
	}
	query := `insert into jobs (
		job_workflow_id,
		trigger_kind,
		branch,
		revision,
		release_build,
		status
	)
	values ($1, $2, $3, $4, $5, $6)
	returning job_id, created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, j, query,
		j.JobWorkflowID, j.TriggerKind, j.Branch, j.Revision, j.ReleaseBuild, j.Status,
	); err != nil {
		return nil, err
	}
	return j, nil
}

func (store *JobSQLiteStore) ReadJobByID(ctx context.Context, id int64) (*Job, error) {
	j := new(Job)
	query := "select * from jobs where job_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, j, query, id); err != nil {
		return nil, err
	}
	return j, nil
}

func (store *JobSQLiteStore) UpdateJobStartedOn(
	ctx context.Context,
	id int64,
	workingDirectory string,
	status JobStatus,
	startedOn *time.Time,
) error {
	query := `update jobs
	set working_directory = $1,
		status = $2,
		started_on = $3
	where job_id = $4`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		workingDirectory,
		status,
		startedOn.Format(internal.DBTimestampLayout),
		id,
	)
	return err
}

func (store *JobSQLiteStore) UpdateJobEndedOn(
	ctx context.Context,
	id int64,
	status JobStatus,
	output, artifacts *string,
	endedOn *time.Time,
) error {
	query := `update jobs
	set status = $1,
		output = $2,
		artifacts = $3,
		ended_on = $4
	where job_id = $5`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		status,
		output,
		artifacts,
		endedOn.Format(internal.DBTimestampLayout),
		id,
	)
	return err
}

func (store *JobSQLiteStore) AppendJobOutput(ctx context.Context, id int64, out string) error {
	tx, err := store.rwdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	j := new(Job)
	readQuery := `select * from jobs where job_id = $1`
	if err := sqlscan.Get(ctx, tx, j, readQuery, id); err != nil {
		return err
	}

	var existingOutput string
	if j.Output != nil {
		existingOutput = *j.Output
	}
	updateQuery := `update jobs
	set output = $1
	where job_id = $2`
	if _, err := tx.ExecContext(ctx, updateQuery, existingOutput+out, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (store *JobSQLiteStore) DeleteJob(ctx context.Context, id int64) error {
	query := "delete from jobs where job_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}

func (store *JobSQLiteStore) ListWorkflowJobs(
	ctx context.Context,
	workflowID int64,
) ([]Job, error) {
	query := `select * from jobs
	where job_workflow_id = $1`
	jobs := make([]Job, 0)
	err := sqlscan.Select(ctx, store.rdb, &jobs, query, workflowID)
	return jobs, err
}

func (store *JobSQLiteStore) ListLatestWorkflowJobs(
	ctx context.Context,
	workflowID, limit int64,
) ([]Job, error) {
	query := `select * from jobs
	where job_workflow_id = $1
	order by created_on desc limit $2`
	jobs := make([]Job, 0)
	err := sqlscan.Select(ctx, store.rdb, &jobs, query, workflowID, limit)
	return jobs, err
}

func (store *JobSQLiteStore) ListWorkflowJobsPaginated(
	ctx context.Context,
	workflowID, limit, offset int64,
) ([]Job, error) {
	query := `select
		j.job_id,
		j.job_workflow_id,
		j.trigger_kind,
		j.branch,
		j.revision,
		j.release_build,
		j.status,
		j.created_on,
		j.started_on,
		j.ended_on,
		w.name as workflow_name
	from jobs j
	join workflows w
	on j.job_workflow_id = w.workflow_id
	where job_workflow_id = $1
	order by created_on desc limit $2 offset $3`
	jobs := make([]Job, 0)
	err := sqlscan.Select(ctx, store.rdb, &jobs, query, workflowID, limit, offset)
	return jobs, err
}

func (store *JobSQLiteStore) CountWorkflowJobs(
	ctx context.Context,
	workflowID int64,
) (int64, error) {
	var count int64
	query := `select count(*) from jobs where job_workflow_id = $1`
	err := sqlscan.Get(ctx, store.rdb, &count, query, workflowID)
	return count, err
}

// PruneJobs deletes finished jobs that ended before the cutoff.
func (store *JobSQLiteStore) PruneJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `delete from jobs
	where ended_on is not null
	and ended_on < $1`
	res, err := store.rwdb.ExecContext(ctx, query, cutoff.Format(internal.DBTimestampLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (store *JobSQLiteStore) CreateJobStep(
	ctx context.Context,
	jobID, ordinal int64,
	name string,
	status StepStatus,
) (*JobStep, error) {
	s := &JobStep{
		StepJobID: jobID,
		Ordinal:   ordinal,
		Name:      name,
		Status:    status,
	}
	query := `insert into job_steps (
		step_job_id,
		ordinal,
		name,
		status
	)
	values ($1, $2, $3, $4)
	returning job_step_id`
	if err := sqlscan.Get(
		ctx, store.rwdb, s, query,
		s.StepJobID, s.Ordinal, s.Name, s.Status,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *JobSQLiteStore) UpdateJobStep(
	ctx context.Context,
	stepID int64,
	status StepStatus,
	exitCode int64,
	startedOn, endedOn *time.Time,
) error {
	query := `update job_steps
	set status = $1,
		exit_code = $2,
		started_on = $3,
		ended_on = $4
	where job_step_id = $5`
	_, err := store.rwdb.ExecContext(ctx, query, status, exitCode, startedOn, endedOn, stepID)
	return err
}

func (store *JobSQLiteStore) ListJobSteps(ctx context.Context, jobID int64) ([]JobStep, error) {
	query := `select * from job_steps
	where step_job_id = $1
	order by ordinal`
	steps := make([]JobStep, 0)
	err := sqlscan.Select(ctx, store.rdb, &steps, query, jobID)
	return steps, err
}
