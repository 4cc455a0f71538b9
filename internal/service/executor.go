package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Executor runs job commands on an agent. The local executor runs on the
// controller machine, the SSH executor on a remote agent.
type Executor interface {
	Prepare(ctx context.Context, dir string) error
	Run(
		ctx context.Context,
		dir, command string,
		timeout time.Duration,
		outputCh chan<- string,
	) (int64, error)
	Close() error
}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

// LocalExecutor runs commands through the controller's shell.
type LocalExecutor struct{}

func (e *LocalExecutor) Prepare(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return ProvisionError{Message: fmt.Sprintf("creating %s", dir), Err: err}
	}
	return nil
}

func (e *LocalExecutor) Run(
	ctx context.Context,
	dir, command string,
	timeout time.Duration,
	outputCh chan<- string,
) (int64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, err
	}

	if err := cmd.Start(); err != nil {
		return -1, errors.Join(fmt.Errorf("err starting command %s", command), err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			outputCh <- scanner.Text() + "\n"
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			outputCh <- scanner.Text() + "\n"
		}
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return -1, JobCancelError{Message: "step execution cancelled by user"}
	}
	if timeoutCtx.Err() != nil {
		return -1, fmt.Errorf(
			"step execution timed out in %d seconds, command: '%s'",
			int(timeout.Seconds()),
			command,
		)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return int64(exitErr.ExitCode()), nil
		}
		return -1, waitErr
	}
	return 0, nil
}

func (e *LocalExecutor) Close() error {
	return nil
}
