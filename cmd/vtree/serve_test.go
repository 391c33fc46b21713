package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/archive"
	"github.com/vango-dev/vtree/pkg/archive/sqlstore"
)

func dirConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Archive = archive.Config{Kind: archive.KindDir, Dir: t.TempDir()}
	cfg.Metrics.Namespace = "clitest"
	return cfg
}

func TestNewServiceRecordsFrames(t *testing.T) {
	cfg := dirConfig(t)
	ctx := context.Background()

	svc, err := newService(ctx, cfg, serveOptions{app: "counter", stream: "session"}, io.Discard)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if svc.recorder == nil || svc.recorder.Stream() != "session" {
		t.Fatalf("recorder = %+v, want stream session", svc.recorder)
	}
	if err := svc.host.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer svc.host.Close()

	srv := httptest.NewServer(svc.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/html")
	if err != nil {
		t.Fatalf("GET /debug/html: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `<span>0</span>`) {
		t.Errorf("/debug/html = %q", body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "clitest_host_edit_seq 1") {
		t.Errorf("/metrics is missing the host sequence gauge")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("/metrics is missing the Go collector")
	}

	entries, err := svc.store.Load(ctx, "session")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Seq != 1 {
		t.Errorf("recorded %d entries, want the initial frame", len(entries))
	}
}

func TestNewServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*config.Config)
		opts serveOptions
		code string
	}{
		{"unknown app", nil, serveOptions{app: "tetris"}, "E140"},
		{"bad stream", func(c *config.Config) { c.Archive = archive.Config{Kind: archive.KindMemory} }, serveOptions{app: "counter", stream: "../up"}, "E150"},
		{"bad archive", func(c *config.Config) { c.Archive = archive.Config{Kind: "tape"} }, serveOptions{app: "counter"}, "E150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Metrics.Enabled = false
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			_, err := newService(context.Background(), cfg, tt.opts, io.Discard)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Code != tt.code {
				t.Errorf("newService() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestNewServiceWithoutArchive(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Enabled = false

	svc, err := newService(context.Background(), cfg, serveOptions{app: "todo"}, io.Discard)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if svc.store != nil || svc.recorder != nil {
		t.Error("archive kind none still created a recorder")
	}

	srv := httptest.NewServer(svc.handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics status = %d with metrics disabled, want 404", resp.StatusCode)
	}
}

func TestNewServiceSQLiteAndEvents(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Enabled = false
	cfg.Archive = archive.Config{Kind: sqlstore.Kind, DSN: filepath.Join(t.TempDir(), "frames.db")}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	ctx := context.Background()

	svc, err := newService(ctx, cfg, serveOptions{app: "todo", events: true}, io.Discard)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if svc.events == nil {
		t.Fatal("events enabled but no feed")
	}
	stream := svc.recorder.Stream()
	if !strings.HasPrefix(stream, "todo-") || len(stream) != len("todo-")+8 {
		t.Errorf("default stream = %q", stream)
	}
	if err := svc.host.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	entries, err := svc.store.Load(ctx, stream)
	if err != nil || len(entries) != 1 {
		t.Errorf("Load() = %d entries, %v", len(entries), err)
	}

	svc.host.Close()
	if err := svc.close(); err != nil {
		t.Errorf("close() error = %v", err)
	}
	if _, err := svc.store.Streams(ctx); err == nil {
		t.Error("store still usable after close")
	}
}

func TestReplayCommand(t *testing.T) {
	cfg := dirConfig(t)
	ctx := context.Background()

	svc, err := newService(ctx, cfg, serveOptions{app: "counter", stream: "demo"}, io.Discard)
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	if err := svc.host.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	svc.host.Close()

	run := func(args ...string) (string, error) {
		cmd := replayCmd(func() (*config.Config, error) { return cfg, nil })
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	out, err := run()
	if err != nil || strings.TrimSpace(out) != "demo" {
		t.Errorf("replay (list) = %q, %v", out, err)
	}

	out, err = run("demo")
	if err != nil {
		t.Fatalf("replay demo: %v", err)
	}
	want := `<div class="counter"><button>-</button><span>0</span><button>+</button></div>`
	if strings.TrimSpace(out) != want {
		t.Errorf("replay demo = %q, want %q", out, want)
	}

	out, err = run("demo", "--edits")
	if err != nil || !strings.HasPrefix(out, "seq 1 (") || !strings.Contains(out, "CreateElement") {
		t.Errorf("replay --edits = %q, %v", out, err)
	}

	out, err = run("demo", "--follow", "--seq", "1")
	if err != nil || !strings.HasPrefix(out, "seq 1 (") {
		t.Errorf("replay --follow = %q, %v", out, err)
	}

	_, err = run("missing")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E151" {
		t.Errorf("replay missing error = %v, want E151", err)
	}
}

func TestReplayWithoutArchive(t *testing.T) {
	cmd := replayCmd(func() (*config.Config, error) { return config.New(), nil })
	cmd.SetOut(io.Discard)
	cmd.SetArgs(nil)
	err := cmd.ExecuteContext(context.Background())
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E150" {
		t.Errorf("replay without archive error = %v, want E150", err)
	}
}

func TestLoadConfigFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"server": {"addr": "127.0.0.1:9100"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfigFrom(path)
	if err != nil {
		t.Fatalf("loadConfigFrom() error = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9100" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"server": {"addr": "nope"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = loadConfigFrom(bad)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E122" {
		t.Errorf("loadConfigFrom(bad) error = %v, want E122", err)
	}

	_, err = loadConfigFrom(filepath.Join(dir, "absent.json"))
	if !stderrors.As(err, &e) || e.Code != "E124" {
		t.Errorf("loadConfigFrom(absent) error = %v, want E124", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Errorf("version --short = %q, want %q", out.String(), version)
	}
}
