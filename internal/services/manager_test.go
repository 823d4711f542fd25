package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/go-cmp/cmp"
	"github.com/testcontainers/testcontainers-go"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/report"
)

// fakeContainer implements the parts of testcontainers.Container the manager uses
type fakeContainer struct {
	testcontainers.Container
	host       string
	ports      map[nat.Port]string
	terminated bool
}

func (f *fakeContainer) Host(ctx context.Context) (string, error) {
	return f.host, nil
}

func (f *fakeContainer) MappedPort(ctx context.Context, port nat.Port) (nat.Port, error) {
	if mapped, ok := f.ports[port]; ok {
		return nat.Port(mapped), nil
	}
	return "", fmt.Errorf("port not found: %s", port)
}

func (f *fakeContainer) Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error {
	f.terminated = true
	return nil
}

func (f *fakeContainer) Logs(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("ready\n")), nil
}

func TestNewManager_Order(t *testing.T) {
	tests := []struct {
		name      string
		configs   map[string]Service
		wantOrder []string
		wantErr   bool
	}{
		{
			name:      "empty",
			configs:   map[string]Service{},
			wantOrder: nil,
		},
		{
			name: "independent services sort by name",
			configs: map[string]Service{
				"redis":    {Image: "redis:7"},
				"postgres": {Image: "postgres:16"},
			},
			wantOrder: []string{"postgres", "redis"},
		},
		{
			name: "chain",
			configs: map[string]Service{
				"worker":   {Image: "worker", DependsOn: []string{"api"}},
				"api":      {Image: "api", DependsOn: []string{"postgres"}},
				"postgres": {Image: "postgres:16"},
			},
			wantOrder: []string{"postgres", "api", "worker"},
		},
		{
			name: "diamond",
			configs: map[string]Service{
				"app":      {Image: "app", DependsOn: []string{"api", "worker"}},
				"api":      {Image: "api", DependsOn: []string{"postgres"}},
				"worker":   {Image: "worker", DependsOn: []string{"postgres"}},
				"postgres": {Image: "postgres:16"},
			},
			wantOrder: []string{"postgres", "api", "worker", "app"},
		},
		{
			name: "self cycle",
			configs: map[string]Service{
				"a": {Image: "a", DependsOn: []string{"a"}},
			},
			wantErr: true,
		},
		{
			name: "three service cycle",
			configs: map[string]Service{
				"a": {Image: "a", DependsOn: []string{"b"}},
				"b": {Image: "b", DependsOn: []string{"c"}},
				"c": {Image: "c", DependsOn: []string{"a"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.configs)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "circular dependency") {
					t.Errorf("expected circular dependency error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantOrder, m.Order()); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildWaitStrategy(t *testing.T) {
	strategies := []WaitStrategy{
		{},
		{Type: "port", Target: "5432"},
		{Type: "log", Target: "ready to accept connections", Timeout: 30 * time.Second},
		{Type: "http", Target: "8080/tcp", Path: "/health", Method: "GET"},
		{Type: "exec", Target: "pg_isready -U postgres"},
	}
	for _, ws := range strategies {
		if buildWaitStrategy(ws) == nil {
			t.Errorf("no strategy for %+v", ws)
		}
	}
}

func newStartedManager(t *testing.T) (*Manager, map[string]*fakeContainer) {
	t.Helper()
	m, err := NewManager(map[string]Service{
		"postgres": {Image: "postgres:16", Ports: []string{"5432"}},
		"redis":    {Image: "redis:7", Ports: []string{"6379/tcp"}},
		"mailhog":  {Image: "mailhog/mailhog", Ports: []string{"1025", "8025"}, DependsOn: []string{"redis"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	fakes := map[string]*fakeContainer{
		"postgres": {host: "localhost", ports: map[nat.Port]string{"5432/tcp": "32768"}},
		"redis":    {host: "localhost", ports: map[nat.Port]string{"6379/tcp": "32769"}},
		"mailhog":  {host: "localhost", ports: map[nat.Port]string{"1025/tcp": "32770", "8025/tcp": "32771"}},
	}
	for name, f := range fakes {
		m.containers[name] = f
	}
	return m, fakes
}

func TestManager_Env(t *testing.T) {
	m, _ := newStartedManager(t)

	env, err := m.Env(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"POSTGRES_HOST":      "localhost",
		"POSTGRES_PORT":      "32768",
		"POSTGRES_ADDR":      "localhost:32768",
		"POSTGRES_PORT_5432": "32768",
		"REDIS_HOST":         "localhost",
		"REDIS_PORT":         "32769",
		"REDIS_ADDR":         "localhost:32769",
		"REDIS_PORT_6379":    "32769",
		"MAILHOG_HOST":       "localhost",
		"MAILHOG_PORT":       "32770",
		"MAILHOG_ADDR":       "localhost:32770",
		"MAILHOG_PORT_1025":  "32770",
		"MAILHOG_PORT_8025":  "32771",
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_InternalEnv(t *testing.T) {
	m, err := NewManager(map[string]Service{
		"user-db": {Image: "postgres:16", Ports: []string{"5432/tcp"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"USER_DB_HOST":      "user-db",
		"USER_DB_PORT":      "5432",
		"USER_DB_ADDR":      "user-db:5432",
		"USER_DB_PORT_5432": "5432",
	}
	if diff := cmp.Diff(want, m.InternalEnv()); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_EndpointsMissingPort(t *testing.T) {
	m, fakes := newStartedManager(t)
	delete(fakes["redis"].ports, "6379/tcp")

	if _, err := m.Endpoints(context.Background()); err == nil {
		t.Error("expected error for unmapped port")
	}
}

func TestManager_Get(t *testing.T) {
	m, _ := newStartedManager(t)
	if _, err := m.Get("postgres"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := m.Get("kafka"); err == nil {
		t.Error("expected error for unknown service")
	}
}

func TestManager_StopAll(t *testing.T) {
	m, fakes := newStartedManager(t)
	m.StopAll(context.Background())

	for name, f := range fakes {
		if !f.terminated {
			t.Errorf("%s was not terminated", name)
		}
	}
	if len(m.containers) != 0 {
		t.Errorf("expected no running services, got %d", len(m.containers))
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		tree    map[string]any
		want    int
		wantErr string
	}{
		{
			name: "no services",
			tree: map[string]any{},
			want: 0,
		},
		{
			name: "valid",
			tree: map[string]any{"services": map[string]any{
				"postgres": map[string]any{
					"image":    "postgres:16",
					"ports":    []any{"5432"},
					"wait_for": map[string]any{"type": "log", "target": "ready", "timeout": "30s"},
				},
				"redis": map[string]any{"image": "redis:7", "depends_on": []any{"postgres"}},
			}},
			want: 2,
		},
		{
			name:    "missing image",
			tree:    map[string]any{"services": map[string]any{"postgres": map[string]any{"ports": []any{"5432"}}}},
			wantErr: "has no image",
		},
		{
			name:    "unknown dependency",
			tree:    map[string]any{"services": map[string]any{"api": map[string]any{"image": "api", "depends_on": []any{"db"}}}},
			wantErr: "unknown service db",
		},
		{
			name:    "unknown wait type",
			tree:    map[string]any{"services": map[string]any{"api": map[string]any{"image": "api", "wait_for": map[string]any{"type": "sleep"}}}},
			wantErr: `unknown wait type "sleep"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.New(config.Merge(config.Defaults(), tt.tree))
			if err != nil {
				t.Fatal(err)
			}
			services, err := FromConfig(cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, config.ErrConfig) {
					t.Errorf("expected config.ErrConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(services) != tt.want {
				t.Errorf("expected %d services, got %d", tt.want, len(services))
			}
		})
	}
}

func TestManager_CaptureLogs(t *testing.T) {
	m, fakes := newStartedManager(t)
	run, err := report.NewRun(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m.SetRun(run)

	m.captureLogs(context.Background(), "redis", fakes["redis"])

	data, err := os.ReadFile(run.LogPath("service-redis"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ready\n" {
		t.Errorf("unexpected log %q", data)
	}
	m.Cleanup()
}

func TestEnvPrefix(t *testing.T) {
	tests := map[string]string{
		"postgres": "POSTGRES",
		"user-db":  "USER_DB",
		"cache.v2": "CACHE_V2",
	}
	for in, want := range tests {
		if got := envPrefix(in); got != want {
			t.Errorf("envPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	if got := normalizePort("5432"); got != "5432/tcp" {
		t.Errorf("normalizePort = %q", got)
	}
	if got := bare("6379/udp"); got != "6379" {
		t.Errorf("bare = %q", got)
	}
}
