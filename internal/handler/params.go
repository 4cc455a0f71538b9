package handler

import "github.com/oxhollow/ferrite/internal/store"

type CredentialParams struct {
	CredentialID  int64  `json:"credential_id"   param:"credential_id"`
	Username      string `json:"username"`
	Description   string `json:"description"`
	SSHPrivateKey string `json:"ssh_private_key"`
}

type AgentParams struct {
	AgentID           int64  `json:"agent_id"            param:"agent_id"`
	AgentCredentialID int64  `json:"agent_credential_id"`
	Name              string `json:"name"`
	Hostname          string `json:"hostname"`
	Workspace         string `json:"workspace"`
	Description       string `json:"description"`
	OSType            string `json:"os_type"`
}

type WorkflowParams struct {
	WorkflowID      int64  `json:"workflow_id"       param:"workflow_id"`
	WorkflowAgentID int64  `json:"workflow_agent_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Repository      string `json:"repository"`
	PushBranch      string `json:"push_branch"`
	ManifestPath    string `json:"manifest_path"`
}

type ToolchainParams struct {
	WorkflowID int64   `json:"workflow_id" param:"workflow_id"`
	Key        *string `json:"key"`
	MinVersion *string `json:"min_version"`
	MaxVersion *string `json:"max_version"`
	Attributes int64   `json:"attributes"`
}

type ScheduleParams struct {
	WorkflowID int64   `json:"workflow_id" param:"workflow_id"`
	Schedule   *string `json:"schedule"`
	Branch     *string `json:"branch"`
}

type TriggerParams struct {
	WorkflowID int64  `json:"workflow_id" param:"workflow_id"`
	Kind       string `json:"kind"`
	Branch     string `json:"branch"`
	Revision   string `json:"revision"`
	Release    bool   `json:"release"`
}

type JobParams struct {
	WorkflowID int64 `param:"workflow_id"`
	JobID      int64 `param:"job_id"`
}

type ListJobsParams struct {
	WorkflowID int64 `param:"workflow_id"`
	Page       int64 `                    query:"page"`
}

type PatchUserParams struct {
	UserID int64      `param:"user_id"`
	RoleID store.Role `                json:"role_id"`
}

type PatchUserPasswordParams struct {
	UserID          int64  `param:"user_id" json:"user_id"`
	OldPassword     string `                json:"old_password"`
	Password        string `                json:"password"`
	PasswordConfirm string `                json:"password_confirm"`
}

type UserParams struct {
	UserID          int64      `param:"user_id"`
	UserRoleID      store.Role `                json:"user_role_id"`
	Username        string     `                json:"username"`
	Password        string     `                json:"password"`
	PasswordConfirm string     `                json:"password_confirm"`
}

type APIKeyParams struct {
	ID int64 `param:"id"`
}

type ProviderParams struct {
	Key         string `json:"key"         param:"key"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
}

type DependentParams struct {
	ProviderKey  string `json:"provider_key"  param:"key"`
	DependentKey string `json:"dependent_key" param:"dependent_key"`
	Name         string `json:"name"`
}

type CheckDependencyParams struct {
	Key        string  `json:"key"         param:"key"`
	MinVersion *string `json:"min_version" query:"min_version"`
	MaxVersion *string `json:"max_version" query:"max_version"`
	Attributes int64   `json:"attributes"  query:"attributes"`
}
