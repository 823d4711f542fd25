package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tomatool/tomato-ui/internal/report"
)

// CheckDockerAvailable verifies that the Docker daemon is running
func CheckDockerAvailable() error {
	if err := exec.Command("docker", "info").Run(); err != nil {
		return &DockerNotRunningError{}
	}
	return nil
}

// DockerNotRunningError explains how to start Docker on the current platform
type DockerNotRunningError struct{}

func (e *DockerNotRunningError) Error() string {
	switch runtime.GOOS {
	case "darwin":
		return `Docker is not running. To fix this:

  1. Open Docker Desktop
  2. Wait until the whale icon in the menu bar stops animating
  3. Run tomato-ui again

  Or start Docker from a terminal:
    open -a Docker`
	case "linux":
		return `Docker is not running. To fix this:

  1. Start the Docker daemon:
       sudo systemctl start docker

  2. Make sure your user is in the docker group:
       sudo usermod -aG docker $USER
       (log out and back in after this)

  3. Run tomato-ui again`
	default:
		return "Docker is not running. Please start Docker and try again."
	}
}

// Endpoint is the address a service port is reachable at
type Endpoint struct {
	Service string
	Port    string
	Host    string
	Mapped  string
}

// Manager starts the service containers in dependency order on a shared network
type Manager struct {
	configs    map[string]Service
	containers map[string]testcontainers.Container
	order      []string
	mu         sync.RWMutex
	run        *report.Run
	logFiles   map[string]*os.File
	network    *testcontainers.DockerNetwork
}

// NewManager fails when the services depend on each other in a cycle
func NewManager(configs map[string]Service) (*Manager, error) {
	m := &Manager{
		configs:    configs,
		containers: make(map[string]testcontainers.Container),
		logFiles:   make(map[string]*os.File),
	}

	order, err := m.calculateStartOrder()
	if err != nil {
		return nil, fmt.Errorf("calculating start order: %w", err)
	}
	m.order = order
	return m, nil
}

// Order returns the service names in start order
func (m *Manager) Order() []string {
	return m.order
}

// SetRun writes each service's output into service-<name>.log
func (m *Manager) SetRun(run *report.Run) {
	m.run = run
}

// NetworkName returns the shared network, empty before StartAll
func (m *Manager) NetworkName() string {
	if m.network == nil {
		return ""
	}
	return m.network.Name
}

// calculateStartOrder sorts the services topologically, alphabetically among peers
func (m *Manager) calculateStartOrder() ([]string, error) {
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)

	for name := range m.configs {
		inDegree[name] = 0
	}
	for name, cfg := range m.configs {
		for _, dep := range cfg.DependsOn {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(m.configs) {
		return nil, fmt.Errorf("circular dependency between services")
	}
	return order, nil
}

// StartAll creates the network and starts every service
func (m *Manager) StartAll(ctx context.Context) error {
	if m.network == nil {
		nw, err := network.New(ctx, network.WithCheckDuplicate(), network.WithDriver("bridge"))
		if err != nil {
			return fmt.Errorf("creating network: %w", err)
		}
		m.network = nw
		log.Debug().Str("network", nw.Name).Msg("docker network created")
	}

	for _, name := range m.order {
		if err := m.Start(ctx, name); err != nil {
			return fmt.Errorf("starting service %s: %w", name, err)
		}
	}
	return nil
}

// Start starts a single service, reachable on the network by its name
func (m *Manager) Start(ctx context.Context, name string) error {
	cfg, ok := m.configs[name]
	if !ok {
		return fmt.Errorf("unknown service: %s", name)
	}

	log.Debug().Str("service", name).Str("image", cfg.Image).Msg("starting service")
	startTime := time.Now()

	req := testcontainers.ContainerRequest{
		Image:      cfg.Image,
		Env:        cfg.Env,
		WaitingFor: buildWaitStrategy(cfg.WaitFor),
	}
	for _, port := range cfg.Ports {
		req.ExposedPorts = append(req.ExposedPorts, normalizePort(port))
	}
	if m.network != nil {
		req.Networks = []string{m.network.Name}
		req.NetworkAliases = map[string][]string{m.network.Name: {name}}
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}

	m.mu.Lock()
	m.containers[name] = c
	m.mu.Unlock()

	log.Debug().Str("service", name).Dur("duration", time.Since(startTime)).Msg("service ready")

	if m.run != nil {
		go m.captureLogs(ctx, name, c)
	}
	return nil
}

func (m *Manager) captureLogs(ctx context.Context, name string, c testcontainers.Container) {
	f, err := m.run.CreateLog("service-" + name)
	if err != nil {
		log.Warn().Err(err).Str("service", name).Msg("failed to create service log file")
		return
	}

	m.mu.Lock()
	m.logFiles[name] = f
	m.mu.Unlock()

	logs, err := c.Logs(ctx)
	if err != nil {
		log.Warn().Err(err).Str("service", name).Msg("failed to get service logs")
		return
	}
	defer logs.Close()
	io.Copy(f, logs)
}

func buildWaitStrategy(ws WaitStrategy) wait.Strategy {
	timeout := ws.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	switch ws.Type {
	case "port":
		return wait.ForListeningPort(nat.Port(normalizePort(ws.Target))).WithStartupTimeout(timeout)
	case "log":
		return wait.ForLog(ws.Target).WithStartupTimeout(timeout)
	case "http":
		strategy := wait.ForHTTP(ws.Path).WithPort(nat.Port(normalizePort(ws.Target))).WithStartupTimeout(timeout)
		if ws.Method != "" {
			strategy = strategy.WithMethod(ws.Method)
		}
		return strategy
	case "exec":
		return wait.ForExec([]string{"sh", "-c", ws.Target}).WithStartupTimeout(timeout)
	default:
		return wait.ForLog("").WithStartupTimeout(timeout)
	}
}

// Get returns a running service container
func (m *Manager) Get(name string) (testcontainers.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.containers[name]
	if !ok {
		return nil, fmt.Errorf("service not running: %s", name)
	}
	return c, nil
}

// Endpoints lists the host address of every exposed port in start order
func (m *Manager) Endpoints(ctx context.Context) ([]Endpoint, error) {
	var endpoints []Endpoint
	for _, name := range m.order {
		c, err := m.Get(name)
		if err != nil {
			continue
		}
		host, err := c.Host(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting host of %s: %w", name, err)
		}
		for _, port := range m.configs[name].Ports {
			mapped, err := c.MappedPort(ctx, nat.Port(normalizePort(port)))
			if err != nil {
				return nil, fmt.Errorf("getting mapped port %s of %s: %w", port, name, err)
			}
			endpoints = append(endpoints, Endpoint{Service: name, Port: bare(port), Host: host, Mapped: mapped.Port()})
		}
	}
	return endpoints, nil
}

// Env returns the variables a process on the host uses to reach the services.
// For a service named postgres exposing 5432 these are POSTGRES_HOST,
// POSTGRES_PORT, POSTGRES_ADDR and POSTGRES_PORT_5432. The first port is the
// default one.
func (m *Manager) Env(ctx context.Context) (map[string]string, error) {
	endpoints, err := m.Endpoints(ctx)
	if err != nil {
		return nil, err
	}
	env := make(map[string]string)
	for _, e := range endpoints {
		exportEndpoint(env, e)
	}
	return env, nil
}

// InternalEnv is Env as seen from a container on the shared network
func (m *Manager) InternalEnv() map[string]string {
	env := make(map[string]string)
	for _, name := range m.order {
		for _, port := range m.configs[name].Ports {
			exportEndpoint(env, Endpoint{Service: name, Port: bare(port), Host: name, Mapped: bare(port)})
		}
	}
	return env
}

func exportEndpoint(env map[string]string, e Endpoint) {
	prefix := envPrefix(e.Service)
	if _, ok := env[prefix+"_PORT"]; !ok {
		env[prefix+"_HOST"] = e.Host
		env[prefix+"_PORT"] = e.Mapped
		env[prefix+"_ADDR"] = net.JoinHostPort(e.Host, e.Mapped)
	}
	env[prefix+"_PORT_"+e.Port] = e.Mapped
}

// StopAll stops the services in reverse start order
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		name := m.order[i]
		c, ok := m.containers[name]
		if !ok {
			continue
		}
		log.Debug().Str("service", name).Msg("stopping service")
		if err := c.Terminate(ctx); err != nil {
			log.Warn().Err(err).Str("service", name).Msg("failed to stop service")
		}
		delete(m.containers, name)
	}
}

// Cleanup stops the services, closes their logs and removes the network
func (m *Manager) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m.StopAll(ctx)

	m.mu.Lock()
	for _, f := range m.logFiles {
		f.Close()
	}
	m.logFiles = make(map[string]*os.File)
	m.mu.Unlock()

	if m.network != nil {
		if err := m.network.Remove(ctx); err != nil {
			log.Warn().Err(err).Str("network", m.network.Name).Msg("failed to remove network")
		}
		m.network = nil
	}
}
