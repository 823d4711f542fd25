package apprunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tomatool/tomato-ui/internal/report"
)

// Mode determines how the app is run
type Mode string

const (
	ModeCommand   Mode = "command"   // Run as local process
	ModeContainer Mode = "container" // Run in Docker container
)

const maxLogLines = 100

// Runner starts the web application the browser tests point at
type Runner struct {
	config AppConfig
	mode   Mode

	// Command mode
	cmd *exec.Cmd

	// Container mode
	appContainer testcontainers.Container

	host string
	port int

	// Backing services
	serviceEnv map[string]string
	network    string

	showLogs     bool
	out          io.Writer
	logLines     []string
	logMu        sync.Mutex
	stopLogs     chan struct{}
	stopLogsOnce sync.Once
	logFile      *os.File
}

// NewRunner creates a new app runner
func NewRunner(cfg AppConfig) *Runner {
	mode := ModeCommand
	if cfg.UseContainer() {
		mode = ModeContainer
	}

	return &Runner{
		config:   cfg,
		mode:     mode,
		host:     "localhost",
		port:     cfg.Port,
		showLogs: true,
		out:      os.Stdout,
		stopLogs: make(chan struct{}),
	}
}

// Mode returns the current running mode
func (r *Runner) Mode() Mode {
	return r.mode
}

// SetShowLogs enables or disables log streaming to the terminal
func (r *Runner) SetShowLogs(show bool) {
	r.showLogs = show
}

// SetRun writes app output into the run's app.log
func (r *Runner) SetRun(run *report.Run) {
	if run == nil {
		return
	}
	f, err := run.CreateLog("app")
	if err != nil {
		log.Warn().Err(err).Msg("failed to create app log file")
		return
	}
	r.logFile = f
}

// SetServiceEnv adds the variables that locate the backing services. They are
// also available to ${VAR} references in the app env.
func (r *Runner) SetServiceEnv(env map[string]string) {
	r.serviceEnv = env
}

// SetNetwork attaches the app container to the services network
func (r *Runner) SetNetwork(name string) {
	r.network = name
}

// Start starts the application and waits until it is ready
func (r *Runner) Start(ctx context.Context) error {
	switch r.mode {
	case ModeCommand:
		return r.startCommand(ctx)
	case ModeContainer:
		return r.startContainer(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", r.mode)
	}
}

func (r *Runner) startCommand(ctx context.Context) error {
	if r.config.Command == "" {
		return fmt.Errorf("app command is required for command mode")
	}

	parts := strings.Fields(r.config.Command)
	r.cmd = exec.CommandContext(ctx, parts[0], parts[1:]...)
	if r.config.WorkDir != "" {
		r.cmd.Dir = r.config.WorkDir
	}
	r.cmd.Env = append(os.Environ(), r.buildEnv()...)

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	log.Debug().Str("command", r.config.Command).Msg("starting app process")
	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("starting app: %w", err)
	}

	go r.streamLogs(stdout, "stdout")
	go r.streamLogs(stderr, "stderr")

	if err := r.waitForReady(ctx); err != nil {
		r.Stop()
		return fmt.Errorf("app not ready: %w", err)
	}
	r.settle(ctx)

	log.Debug().Str("command", r.config.Command).Str("url", r.BaseURL()).Msg("app process ready")
	return nil
}

// buildEnv returns the service and configured variables as KEY=VALUE
func (r *Runner) buildEnv() []string {
	vars := r.envMap()
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// envMap merges the service variables with the configured ones, expanding
// ${VAR} against the service variables first and the process environment second
func (r *Runner) envMap() map[string]string {
	lookup := func(key string) string {
		if v, ok := r.serviceEnv[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	env := make(map[string]string, len(r.serviceEnv)+len(r.config.Env))
	for k, v := range r.serviceEnv {
		env[k] = v
	}
	for k, v := range r.config.Env {
		env[k] = os.Expand(v, lookup)
	}
	return env
}

// streamLogs reads lines from pipe into memory, the log file and the terminal
func (r *Runner) streamLogs(pipe io.Reader, source string) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		select {
		case <-r.stopLogs:
			return
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		r.logMu.Lock()
		r.logLines = append(r.logLines, line)
		if len(r.logLines) > maxLogLines {
			r.logLines = r.logLines[1:]
		}
		if r.logFile != nil {
			fmt.Fprintf(r.logFile, "[%s] %s\n", source, line)
		}
		r.logMu.Unlock()

		if r.showLogs {
			fmt.Fprintf(r.out, "    │ %s\n", line)
		}
	}
}

// waitForReady polls the ready check in command mode
func (r *Runner) waitForReady(ctx context.Context) error {
	if r.config.Ready == nil && r.config.Port == 0 {
		return nil
	}

	timeout := 30 * time.Second
	if r.config.Ready != nil && r.config.Ready.Timeout > 0 {
		timeout = r.config.Ready.Timeout
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if r.check(2*time.Second) == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("timeout waiting for app to be ready")
}

// check performs a single HTTP or TCP probe
func (r *Runner) check(timeout time.Duration) error {
	if r.config.Ready != nil && r.config.Ready.Type == "http" {
		url := r.BaseURL() + r.readyPath()
		client := &http.Client{Timeout: timeout}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		resp.Body.Close()

		if want := r.readyStatus(); resp.StatusCode != want {
			return fmt.Errorf("health check returned status %d, expected %d", resp.StatusCode, want)
		}
		return nil
	}

	addr := net.JoinHostPort(r.host, fmt.Sprint(r.port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("app not responding on %s: %w", addr, err)
	}
	conn.Close()
	return nil
}

func (r *Runner) readyPath() string {
	if r.config.Ready != nil && r.config.Ready.Path != "" {
		return r.config.Ready.Path
	}
	return "/health"
}

func (r *Runner) readyStatus() int {
	if r.config.Ready != nil && r.config.Ready.Status != 0 {
		return r.config.Ready.Status
	}
	return http.StatusOK
}

func (r *Runner) settle(ctx context.Context) {
	if r.config.Wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.config.Wait):
	}
}

func (r *Runner) startContainer(ctx context.Context) error {
	var req testcontainers.ContainerRequest

	switch {
	case r.config.Image != "":
		log.Debug().Str("image", r.config.Image).Msg("starting app with image")
		req = testcontainers.ContainerRequest{Image: r.config.Image}
	case r.config.Build != nil:
		log.Debug().Str("dockerfile", r.config.Build.Dockerfile).Msg("starting app with dockerfile")
		buildCtx := "."
		if r.config.Build.Context != "" {
			buildCtx = r.config.Build.Context
		}
		req = testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:       buildCtx,
				Dockerfile:    r.config.Build.Dockerfile,
				PrintBuildLog: r.showLogs,
			},
		}
	default:
		return fmt.Errorf("container mode requires 'image' or 'build' in app config")
	}

	req.Env = r.envMap()
	if r.network != "" {
		req.Networks = []string{r.network}
		req.NetworkAliases = map[string][]string{r.network: {r.config.GetName()}}
	}
	if r.config.Port > 0 {
		req.ExposedPorts = []string{fmt.Sprintf("%d/tcp", r.config.Port)}
	}
	req.WaitingFor = r.buildWaitStrategy()

	startTime := time.Now()
	appContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("starting app container: %w", err)
	}
	r.appContainer = appContainer

	if r.config.Port > 0 {
		host, err := appContainer.Host(ctx)
		if err != nil {
			r.Stop()
			return fmt.Errorf("getting app host: %w", err)
		}
		mapped, err := appContainer.MappedPort(ctx, r.natPort())
		if err != nil {
			r.Stop()
			return fmt.Errorf("getting mapped port: %w", err)
		}
		r.host = host
		r.port = mapped.Int()
	}

	log.Debug().
		Str("name", r.config.GetName()).
		Str("url", r.BaseURL()).
		Dur("duration", time.Since(startTime)).
		Msg("app container ready")

	go r.captureContainerLogs(ctx)
	r.settle(ctx)
	return nil
}

func (r *Runner) natPort() nat.Port {
	return nat.Port(fmt.Sprintf("%d/tcp", r.config.Port))
}

// buildWaitStrategy creates a testcontainers wait strategy from the ready check
func (r *Runner) buildWaitStrategy() wait.Strategy {
	if r.config.Ready == nil {
		if r.config.Port > 0 {
			return wait.ForListeningPort(r.natPort()).WithStartupTimeout(30 * time.Second)
		}
		return wait.ForLog("").WithStartupTimeout(5 * time.Second)
	}

	timeout := r.config.Ready.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	switch r.config.Ready.Type {
	case "http":
		status := r.readyStatus()
		return wait.ForHTTP(r.readyPath()).
			WithPort(r.natPort()).
			WithStatusCodeMatcher(func(code int) bool { return code == status }).
			WithStartupTimeout(timeout)
	case "exec":
		return wait.ForExec([]string{"sh", "-c", r.config.Ready.Command}).
			WithStartupTimeout(timeout)
	default:
		return wait.ForListeningPort(r.natPort()).WithStartupTimeout(timeout)
	}
}

func (r *Runner) captureContainerLogs(ctx context.Context) {
	if r.appContainer == nil {
		return
	}
	logs, err := r.appContainer.Logs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get app container logs")
		return
	}
	defer logs.Close()
	r.streamLogs(logs, "container")
}

// Stop stops the application. It is safe to call more than once.
func (r *Runner) Stop() error {
	r.stopLogsOnce.Do(func() {
		close(r.stopLogs)
	})

	r.logMu.Lock()
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
	r.logMu.Unlock()

	switch r.mode {
	case ModeCommand:
		return r.stopCommand()
	case ModeContainer:
		return r.stopContainer()
	}
	return nil
}

func (r *Runner) stopCommand() error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	log.Debug().Int("pid", r.cmd.Process.Pid).Msg("stopping app process")

	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Debug().Err(err).Msg("failed to send SIGTERM, trying SIGKILL")
		if err := r.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("killing app process: %w", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.cmd.Process.Wait()
		done <- err
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		r.cmd.Process.Kill()
		<-done
	}

	r.cmd = nil
	return nil
}

func (r *Runner) stopContainer() error {
	if r.appContainer == nil {
		return nil
	}

	log.Debug().Msg("stopping app container")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.appContainer.Terminate(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to terminate app container")
		return err
	}
	r.appContainer = nil
	return nil
}

// BaseURL returns the URL the browser should open
func (r *Runner) BaseURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(r.host, fmt.Sprint(r.port)))
}

// RecentLogs returns up to n of the most recent log lines
func (r *Runner) RecentLogs(n int) []string {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	if n <= 0 || len(r.logLines) == 0 {
		return nil
	}

	start := len(r.logLines) - n
	if start < 0 {
		start = 0
	}

	result := make([]string, len(r.logLines)-start)
	copy(result, r.logLines[start:])
	return result
}

// VerifyHealthy performs a single ready check
func (r *Runner) VerifyHealthy() error {
	if r.port == 0 {
		return nil
	}
	return r.check(5 * time.Second)
}
