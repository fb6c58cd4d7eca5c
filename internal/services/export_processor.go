package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Exporter writes every owner's report to an external sink.
type Exporter interface {
	ExportAll(ctx context.Context) error
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// Interval is how often a full export runs (default: 15m)
	Interval time.Duration

	// RunOnStart exports once before the first tick (default: true)
	RunOnStart bool
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// ExportProcessor runs periodic full exports. It backs up the event-driven
// path in case ledger messages were lost or the worker was down.
type ExportProcessor struct {
	exporter Exporter
	config   ExportProcessorConfig
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runs    int
}

func NewExportProcessor(exporter Exporter, config ExportProcessorConfig, logger *slog.Logger) *ExportProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultExportProcessorConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportProcessor{
		exporter: exporter,
		config:   config,
		logger:   logger,
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for the current export.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs returns how many exports have completed, successful or not.
func (p *ExportProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.export(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.export(ctx)
		}
	}
}

func (p *ExportProcessor) export(ctx context.Context) {
	start := time.Now()
	err := p.exporter.ExportAll(ctx)

	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	if err != nil {
		p.logger.ErrorContext(ctx, "Periodic export failed", "error", err)
		return
	}
	p.logger.InfoContext(ctx, "Periodic export completed", "duration", time.Since(start))
}
