package toolsets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
)

const (
	defaultBashTimeout = 30 * time.Second
	maxCommandOutput   = 1 << 20
)

// BashResult is the structured outcome of one shell command.
type BashResult struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimedOut bool   `json:"timed_out"`
	Duration string `json:"duration"`
}

// BashSet contributes a shell execution tool. Commands run under the
// platform shell with a per-call timeout, capped output, and optional path
// restrictions.
//
// Only attach this toolset in trusted environments: it executes arbitrary
// commands as the server process.
type BashSet struct {
	timeout      time.Duration
	workDir      string
	blockedPaths []string
}

// BashOption configures a BashSet.
type BashOption func(*BashSet)

// WithBashTimeout sets the default command timeout. Defaults to 30s.
func WithBashTimeout(d time.Duration) BashOption {
	return func(b *BashSet) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBashWorkDir runs commands from the given directory instead of the
// process working directory.
func WithBashWorkDir(dir string) BashOption {
	return func(b *BashSet) { b.workDir = dir }
}

// WithBashBlockedPaths rejects commands that mention any of the given path
// prefixes. A coarse filter, not a sandbox.
func WithBashBlockedPaths(paths ...string) BashOption {
	return func(b *BashSet) { b.blockedPaths = paths }
}

// NewBashSet builds the shell toolset.
func NewBashSet(opts ...BashOption) *BashSet {
	b := &BashSet{timeout: defaultBashTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BashSet) Name() string { return "bash" }

func (b *BashSet) Tools() []fastmcp.ToolDef {
	return []fastmcp.ToolDef{
		{
			Name: "bash_run",
			Fn:   b.run,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription(b.description()),
				fastmcp.WithParams(
					fastmcp.Param("command",
						fastmcp.ParamDescription("The shell command to execute"),
						fastmcp.ParamExamples("ls -la", "git status"),
					),
					fastmcp.Param("timeout_seconds",
						fastmcp.ParamDescription("Timeout for this command in seconds. 0 uses the configured default."),
						fastmcp.ParamDefault(0),
					),
				),
			},
		},
		{
			Name: "bash_platform_info",
			Fn:   b.platformInfo,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Report the host platform and shell the bash tool uses"),
			},
		},
	}
}

// description embeds the detected platform so the calling agent issues
// commands for the right shell.
func (b *BashSet) description() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Execute shell commands on the host. Platform: %s/%s | Shell: %s.",
		runtime.GOOS, runtime.GOARCH, shellName())
	sb.WriteString(" SECURITY WARNING: commands run with the server's privileges; only use in trusted environments.")
	if len(b.blockedPaths) > 0 {
		fmt.Fprintf(&sb, " Blocked paths: %s.", strings.Join(b.blockedPaths, ", "))
	}
	return sb.String()
}

func (b *BashSet) run(ctx context.Context, rc *fastmcp.RequestContext, command string, timeoutSeconds int) (BashResult, error) {
	if strings.TrimSpace(command) == "" {
		return BashResult{}, fmt.Errorf("command cannot be empty")
	}
	for _, blocked := range b.blockedPaths {
		if strings.Contains(command, blocked) {
			return BashResult{}, fmt.Errorf("command blocked: path %q is not allowed", blocked)
		}
	}

	timeout := b.timeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, flag := shellCommand()
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Dir = b.workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedBuffer{buf: &stdout, max: maxCommandOutput}
	cmd.Stderr = &limitedBuffer{buf: &stderr, max: maxCommandOutput}

	start := time.Now()
	err := cmd.Run()
	res := BashResult{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	switch {
	case ctx.Err() != nil:
		res.TimedOut = true
		res.ExitCode = -1
		rc.Warning(ctx, fmt.Sprintf("command timed out after %s: %s", timeout, command))
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			return BashResult{}, fmt.Errorf("run command: %w", err)
		}
	default:
		res.ExitCode = 0
	}
	return res, nil
}

func (b *BashSet) platformInfo() map[string]string {
	return map[string]string{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"shell":      shellName(),
		"go_version": runtime.Version(),
		"hostname":   hostname(),
	}
}

func shellCommand() (shell, flag string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, "-c"
	}
	return "/bin/sh", "-c"
}

func shellName() string {
	shell, _ := shellCommand()
	if i := strings.LastIndex(shell, "/"); i >= 0 {
		return shell[i+1:]
	}
	return shell
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

// limitedBuffer keeps the first max bytes and silently drops the rest, so a
// chatty command cannot balloon the dispatch result.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
