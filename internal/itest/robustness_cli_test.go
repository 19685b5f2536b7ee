//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "assemble no args",
			args: staticArgs("assemble"),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "assemble too many args",
			args: staticArgs("assemble", "a", "b"),
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown flag",
			args: staticArgs("assemble", "some-dir", "--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "retries non int",
			args: staticArgs("batch", "some-dir", "--retries", "nope"),
			wantContains: []string{
				`invalid argument "nope" for "--retries"`,
			},
		},
		{
			name: "unknown subcommand",
			args: staticArgs("frobnicate"),
			wantContains: []string{
				`unknown command "frobnicate"`,
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidJobDir(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing job dir",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"assemble", filepath.Join(t.TempDir(), "does-not-exist")}
			},
			wantContains: []string{
				"stat job dir:",
			},
		},
		{
			name: "dir without manifest",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"assemble", t.TempDir()}
			},
			wantContains: []string{
				"job dir has no job.yaml",
			},
		},
		{
			name: "conflicting background sources",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				dir := t.TempDir()
				doc := "audio: voice.mp3\nbackground:\n  video: v.mp4\n  color: \"#ffffff\"\n"
				if err := os.WriteFile(filepath.Join(dir, "job.yaml"), []byte(doc), 0o644); err != nil {
					t.Fatalf("write job.yaml fixture: %v", err)
				}
				return []string{"assemble", dir}
			},
			wantContains: []string{
				"mutually exclusive",
			},
		},
		{
			name: "batch root without jobs",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"batch", t.TempDir()}
			},
			wantContains: []string{
				"no job directories under",
			},
		},
		{
			name: "missing config file",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{"assemble", t.TempDir(), "--config", filepath.Join(t.TempDir(), "nope.yaml")}
			},
			wantContains: []string{
				"read config:",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "."}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR": "1",
			"TERM":     "dumb",
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return repoRoot
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
