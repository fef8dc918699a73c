package capability

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/roomlink/schema"
)

const (
	// DefaultBinary is the platform scan helper executable.
	DefaultBinary = "roomscan-helper"
	// DefaultUploadPort is where the console's reconstruction worker
	// listens for scan chunk uploads.
	DefaultUploadPort = 8000
	// DefaultStopTimeout bounds graceful shutdown of the helper.
	DefaultStopTimeout = 5 * time.Second
)

// ProcessConfig controls how the scan helper is invoked.
type ProcessConfig struct {
	BinaryPath  string
	ExtraArgs   []string
	Env         []string
	UploadPort  int
	StopTimeout time.Duration
	Logger      pslog.Logger
}

// ProcessProvider implements Provider by running the platform scan helper
// as a child process and consuming its JSONL event stream on stdout.
type ProcessProvider struct {
	cfg ProcessConfig
	log pslog.Logger

	mu           sync.Mutex
	cmd          *exec.Cmd
	done         chan struct{}
	uploadTarget string
	subs         map[int]func(schema.CaptureEvent)
	nextSub      int
}

// NewProcessProvider constructs a provider with defaults applied.
func NewProcessProvider(cfg ProcessConfig) *ProcessProvider {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = DefaultBinary
	}
	if cfg.UploadPort <= 0 {
		cfg.UploadPort = DefaultUploadPort
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &ProcessProvider{
		cfg:  cfg,
		log:  log,
		subs: make(map[int]func(schema.CaptureEvent)),
	}
}

// IsSupported reports whether the scan helper is installed.
func (p *ProcessProvider) IsSupported(_ context.Context) bool {
	_, err := exec.LookPath(p.cfg.BinaryPath)
	return err == nil
}

// SetUploadTarget records the console host for chunk upload. Idempotent;
// last writer wins.
func (p *ProcessProvider) SetUploadTarget(host string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadTarget == host {
		return
	}
	p.uploadTarget = host
	p.log.Debug("upload target set", "host", host)
}

// Subscribe registers a capture event listener.
func (p *ProcessProvider) Subscribe(h func(schema.CaptureEvent)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = h
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// StartScan launches the helper for one capture session.
func (p *ProcessProvider) StartScan(ctx context.Context, token string) error {
	p.mu.Lock()
	if p.cmd != nil {
		p.mu.Unlock()
		return schema.ErrScanActive
	}
	args := []string{"capture", "--json", "--token", token}
	if p.uploadTarget != "" {
		args = append(args, "--upload", fmt.Sprintf("http://%s:%d", p.uploadTarget, p.cfg.UploadPort))
	}
	args = append(args, p.cfg.ExtraArgs...)

	cmd := exec.CommandContext(ctx, p.cfg.BinaryPath, args...)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		p.log.Error("scan helper start failed", "binary", p.cfg.BinaryPath, "err", err)
		return fmt.Errorf("%w: %v", schema.ErrCapabilityUnavailable, err)
	}
	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	p.mu.Unlock()

	p.log.Info("scan started", "pid", cmd.Process.Pid, "token_len", len(token))
	go p.consume(stdout, cmd, done)
	return nil
}

// StopScan signals the helper to finish and waits for it to exit.
func (p *ProcessProvider) StopScan(ctx context.Context) error {
	p.mu.Lock()
	cmd := p.cmd
	done := p.done
	p.mu.Unlock()
	if cmd == nil {
		return schema.ErrNoScan
	}
	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGINT)
	}
	timer := time.NewTimer(p.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		p.log.Warn("scan helper did not exit, killing", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}

// consume reads capture events until the helper's stdout closes, then
// reaps the process.
func (p *ProcessProvider) consume(stdout io.Reader, cmd *exec.Cmd, done chan struct{}) {
	stream := newCaptureStream(stdout, p.log)
	for {
		event, err := stream.Next()
		if err != nil {
			break
		}
		p.emit(event)
	}
	err := cmd.Wait()
	if err != nil {
		p.log.Warn("scan helper exited", "err", err)
	} else {
		p.log.Info("scan helper exited")
	}
	p.mu.Lock()
	if p.cmd == cmd {
		p.cmd = nil
		p.done = nil
	}
	p.mu.Unlock()
	close(done)
}

func (p *ProcessProvider) emit(event schema.CaptureEvent) {
	p.mu.Lock()
	handlers := make([]func(schema.CaptureEvent), 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}
