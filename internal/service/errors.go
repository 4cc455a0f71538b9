package service

import "fmt"

type ErrJobQueueFull struct{}

func (e ErrJobQueueFull) Error() string {
	return "job queue is full"
}

func NewErrJobQueueFull() ErrJobQueueFull {
	return ErrJobQueueFull{}
}

type JobCancelError struct {
	Message string
}

func (jce JobCancelError) Error() string {
	return jce.Message
}

// ProvisionError reports that the job environment could not be set up on
// the agent before any step ran.
type ProvisionError struct {
	Message string
	Err     error
}

func (pe ProvisionError) Error() string {
	return fmt.Sprintf("provisioning job environment: %s: %v", pe.Message, pe.Err)
}

func (pe ProvisionError) Unwrap() error {
	return pe.Err
}

// CheckoutError reports a failure cloning or checking out the repository.
type CheckoutError struct {
	Repository string
	Err        error
}

func (ce CheckoutError) Error() string {
	return fmt.Sprintf("checking out %s: %v", ce.Repository, ce.Err)
}

func (ce CheckoutError) Unwrap() error {
	return ce.Err
}

// ToolchainError reports that the required toolchain is missing, outside
// the requested version range, or failed to install.
type ToolchainError struct {
	Message string
	Err     error
}

func (te ToolchainError) Error() string {
	if te.Err != nil {
		return fmt.Sprintf("toolchain: %s: %v", te.Message, te.Err)
	}
	return fmt.Sprintf("toolchain: %s", te.Message)
}

func (te ToolchainError) Unwrap() error {
	return te.Err
}

// StepError reports which step failed and the exit code its command
// returned.
type StepError struct {
	Step     string
	ExitCode int64
}

func (se StepError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", se.Step, se.ExitCode)
}
