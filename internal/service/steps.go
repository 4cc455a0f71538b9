package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oxhollow/ferrite/internal/store"
)

const (
	StepCheckout  = "checkout"
	StepToolchain = "toolchain"
	StepFmtCheck  = "fmt-check"
	StepTest      = "test"
	StepLint      = "lint"
	StepDoc       = "doc"
)

// TriggerEvent is the event that starts a job. Release is only
// meaningful on workflow_call triggers and defaults to false.
type TriggerEvent struct {
	Kind     store.TriggerKind
	Branch   string
	Revision string
	Release  bool
}

type Step struct {
	Name           string
	Script         string
	Env            map[string]string
	Skip           bool
	TimeoutSeconds int64
}

// Command renders the step script with its environment prepended, so the
// same string runs through a local shell or an SSH session.
func (s Step) Command() string {
	if len(s.Env) == 0 {
		return s.Script
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s='%s' ", k, s.Env[k])
	}
	b.WriteString(s.Script)
	return b.String()
}

// BaseEnv returns the environment applied to every step of every job.
// Incremental compilation is disabled for reproducible CI builds, and
// all compiler warnings are promoted to errors.
func BaseEnv() map[string]string {
	return map[string]string{
		"CARGO_INCREMENTAL": "0",
		"RUSTFLAGS":         "-Dwarnings",
	}
}

// BuildSteps returns the fixed step sequence for a trigger event:
// checkout, toolchain, fmt-check, test, lint, doc. The fmt-check step is
// skipped exactly when a workflow_call requests a release build.
func BuildSteps(event TriggerEvent) []Step {
	return []Step{
		{
			Name:           StepCheckout,
			Env:            BaseEnv(),
			TimeoutSeconds: 300,
		},
		{
			Name:           StepToolchain,
			Script:         "rustup show active-toolchain",
			Env:            BaseEnv(),
			TimeoutSeconds: 600,
		},
		{
			Name:           StepFmtCheck,
			Script:         "cargo fmt --all --check",
			Env:            BaseEnv(),
			Skip:           event.Kind == store.TriggerWorkflowCall && event.Release,
			TimeoutSeconds: 300,
		},
		{
			Name:           StepTest,
			Script:         "cargo test --all-features --workspace",
			Env:            BaseEnv(),
			TimeoutSeconds: 3600,
		},
		{
			Name:           StepLint,
			Script:         "cargo clippy --all-features --all-targets --no-deps --workspace",
			Env:            BaseEnv(),
			TimeoutSeconds: 1800,
		},
		{
			Name:           StepDoc,
			Script:         "cargo doc --all-features --no-deps --workspace",
			Env:            BaseEnv(),
			TimeoutSeconds: 1800,
		},
	}
}

// ApplyManifest overlays the repository manifest onto the planned steps:
// a pinned toolchain channel replaces the default toolchain script, and
// manifest env vars are added to every step without overriding the base
// environment.
func ApplyManifest(steps []Step, m *Manifest) {
	if m == nil {
		return
	}
	for i := range steps {
		if steps[i].Name == StepToolchain && m.Toolchain.Channel != "" {
			steps[i].Script = fmt.Sprintf(
				"rustup toolchain install %s && rustup default %s",
				m.Toolchain.Channel, m.Toolchain.Channel,
			)
		}
		for k, v := range m.Env {
			if _, ok := steps[i].Env[k]; ok {
				continue
			}
			if steps[i].Env == nil {
				steps[i].Env = make(map[string]string)
			}
			steps[i].Env[k] = v
		}
	}
}
