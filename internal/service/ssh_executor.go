package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

func NewSSHExecutor(hostname, username string, privateKey []byte) *SSHExecutor {
	return &SSHExecutor{
		hostname:   hostname,
		username:   username,
		privateKey: privateKey,
	}
}

// SSHExecutor runs commands on a remote agent over SSH. The connection
// is established lazily and reused for every command of a job.
type SSHExecutor struct {
	hostname   string
	username   string
	privateKey []byte

	client *ssh.Client
	mu     sync.Mutex
}

func (e *SSHExecutor) Prepare(ctx context.Context, dir string) error {
	if _, err := e.Run(
		ctx,
		"",
		fmt.Sprintf("mkdir -p %s", dir),
		5*time.Second,
		nil,
	); err != nil {
		return ProvisionError{Message: fmt.Sprintf("creating %s on agent", dir), Err: err}
	}
	return nil
}

func (e *SSHExecutor) Run(
	ctx context.Context,
	dir, command string,
	timeout time.Duration,
	outputCh chan<- string,
) (int64, error) {
	if err := e.connect(); err != nil {
		return -1, err
	}

	sess, err := e.client.NewSession()
	if err != nil {
		return -1, err
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		return -1, err
	}

	if dir != "" {
		command = fmt.Sprintf("cd %s && %s", dir, command)
	}

	doneCh := make(chan error, 1)
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	go func() {
		if err := sess.Start(command); err != nil {
			doneCh <- errors.Join(fmt.Errorf("err starting command %s", command), err)
			return
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := bufio.NewScanner(stdout)
			for scanner.Scan() {
				if outputCh != nil {
					outputCh <- scanner.Text() + "\n"
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				if outputCh != nil {
					outputCh <- scanner.Text() + "\n"
				}
			}
		}()
		wg.Wait()

		doneCh <- sess.Wait()
	}()

	interrupt := func() {
		if err := sess.Signal(ssh.SIGINT); err != nil {
			log.Println("err signalling remote command: ", err)
		}
	}
	return awaitCommand(ctx, timeoutCtx, doneCh, interrupt, command, timeout)
}

// awaitCommand waits for the running command to finish. A completed
// command always wins over a deadline that expired in the same instant.
func awaitCommand(
	ctx, timeoutCtx context.Context,
	doneCh <-chan error,
	interrupt func(),
	command string,
	timeout time.Duration,
) (int64, error) {
	select {
	case err := <-doneCh:
		return exitStatus(err)
	case <-timeoutCtx.Done():
		select {
		case err := <-doneCh:
			return exitStatus(err)
		default:
		}
		interrupt()
		if ctx.Err() != nil {
			return -1, JobCancelError{Message: "step execution cancelled by user"}
		}
		return -1, fmt.Errorf(
			"step execution timed out in %d seconds, command: '%s'",
			int(timeout.Seconds()),
			command,
		)
	}
}

func exitStatus(err error) (int64, error) {
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return int64(exitErr.ExitStatus()), nil
		}
		return -1, err
	}
	return 0, nil
}

func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func (e *SSHExecutor) connect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return nil
	}

	signer, err := ssh.ParsePrivateKey(e.privateKey)
	if err != nil {
		return err
	}
	cc := &ssh.ClientConfig{
		User:            e.username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	hostname := e.hostname
	if !strings.Contains(hostname, ":") {
		hostname += ":22"
	}
	client, err := ssh.Dial("tcp", hostname, cc)
	if err != nil {
		return err
	}

	e.client = client
	return nil
}
