package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"factionwatch/internal/parser"
)

// Processor consumes extracted fact sets. Implementations must be safe for
// concurrent use: the listener may run several invocations at once.
type Processor interface {
	Name() string
	Process(ctx context.Context, facts *parser.FactSet) error
}

type ListenerConfig struct {
	Source         Source
	Interest       parser.InterestSet
	Decompress     Decompressor
	ReceiveTimeout time.Duration
	Workers        int
	Metrics        *Metrics
	Logger         *zap.Logger
}

// Listener pulls frames from a source and fans each extracted fact set out
// to every registered processor.
type Listener struct {
	source     Source
	interest   parser.InterestSet
	decompress Decompressor
	timeout    time.Duration
	dispatcher *Dispatcher
	metrics    *Metrics
	logger     *zap.Logger

	mu         sync.RWMutex
	processors []Processor
}

type frame struct {
	id      string
	arrived time.Time
}

func NewListener(cfg ListenerConfig) *Listener {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decompress := cfg.Decompress
	if decompress == nil {
		decompress = Inflate
	}
	timeout := cfg.ReceiveTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Listener{
		source:     cfg.Source,
		interest:   cfg.Interest,
		decompress: decompress,
		timeout:    timeout,
		dispatcher: NewDispatcher(cfg.Workers),
		metrics:    cfg.Metrics,
		logger:     logger.Named("listener"),
	}
}

func (l *Listener) Register(p Processor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processors = append(l.processors, p)
}

func (l *Listener) registered() []Processor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Processor, len(l.processors))
	copy(out, l.processors)
	return out
}

// Run receives frames until ctx is cancelled or the source is exhausted.
// Processor tasks already dispatched run to completion before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.dispatcher.Wait()

	// Dispatched work outlives cancellation of the receive loop.
	taskCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := l.source.Receive(ctx, l.timeout)
		switch {
		case err == nil:
		case errors.Is(err, ErrTimeout):
			continue
		case errors.Is(err, ErrFrameTooLarge):
			l.metrics.frameReceived()
			l.metrics.frameDropped(KindOversized)
			l.logger.Warn("dropping frame", zap.String("kind", KindOversized), zap.Error(err))
			continue
		case errors.Is(err, io.EOF):
			l.logger.Info("source exhausted")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("receiving frame: %w", err)
		}

		l.handle(taskCtx, raw, frame{id: uuid.NewString(), arrived: time.Now().UTC()})
	}
}

func (l *Listener) handle(ctx context.Context, raw []byte, f frame) {
	l.metrics.frameReceived()
	processors := l.registered()

	payload, err := l.decompress(raw)
	if err != nil {
		l.metrics.frameDropped(Classify(err))
		l.logger.Warn("dropping frame",
			zap.String("frame", f.id),
			zap.Time("arrived", f.arrived),
			zap.String("kind", Classify(err)),
			zap.Error(err),
		)
		return
	}

	facts, err := parser.Extract(payload, l.interest)
	if err != nil {
		l.metrics.frameDropped(Classify(err))
		for _, p := range processors {
			l.fail(f, p, err)
		}
		return
	}

	for _, p := range processors {
		l.dispatcher.Go(func() {
			l.invoke(ctx, f, p, facts)
		})
	}
}

// invoke runs one processor. Its failures, including panics, stay contained
// in the invocation.
func (l *Listener) invoke(ctx context.Context, f frame, p Processor, facts *parser.FactSet) {
	defer func() {
		if r := recover(); r != nil {
			l.fail(f, p, fmt.Errorf("processor panic: %v", r))
		}
	}()

	if err := p.Process(ctx, facts); err != nil {
		l.fail(f, p, err)
	}
}

func (l *Listener) fail(f frame, p Processor, err error) {
	kind := Classify(err)
	l.metrics.processorFailed(p.Name(), kind)
	l.logger.Warn("processor failed",
		zap.String("frame", f.id),
		zap.Time("arrived", f.arrived),
		zap.String("processor", p.Name()),
		zap.String("kind", kind),
		zap.Error(err),
	)
}
