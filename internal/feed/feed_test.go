package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

const solEvent = `{"header":{"gatewayTimestamp":"2024-05-01T12:00:00.123456Z"},"message":{"StarSystem":"Sol","SystemSecurity":"$SYSTEM_SECURITY_high;","Factions":[{"Name":"Mother Gaia","Influence":0.61,"ActiveStates":[{"State":"Boom"}]},{"Name":"Sol Workers' Party","Influence":0.39}]}}`

const otherEvent = `{"header":{"gatewayTimestamp":"2024-05-01T12:00:00Z"},"message":{"StarSystem":"Lave","Factions":[{"Name":"Lave Radio","Influence":1}]}}`

func compress(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type scriptedSource struct {
	mu      sync.Mutex
	results []sourceResult
}

type sourceResult struct {
	frame []byte
	err   error
}

func (s *scriptedSource) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil, io.EOF
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.frame, next.err
}

func (s *scriptedSource) Close() error { return nil }

type recordingProcessor struct {
	name string
	err  error
	mu   sync.Mutex
	seen []*parser.FactSet
}

func (p *recordingProcessor) Name() string { return p.name }

func (p *recordingProcessor) Process(ctx context.Context, facts *parser.FactSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, facts)
	return p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

type panickingProcessor struct{}

func (panickingProcessor) Name() string { return "panics" }

func (panickingProcessor) Process(ctx context.Context, facts *parser.FactSet) error {
	panic("boom")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", parser.ErrMalformedInput), KindMalformedInput},
		{fmt.Errorf("x: %w", parser.ErrMissingField), KindMissingField},
		{fmt.Errorf("x: %w", parser.ErrInvalidFormat), KindInvalidFormat},
		{fmt.Errorf("x: %w", ErrDecompression), KindDecompression},
		{fmt.Errorf("x: %w", ErrFrameTooLarge), KindOversized},
		{store.Failure(errors.New("conn reset")), KindStoreFailure},
		{errors.New("something else"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestInflate(t *testing.T) {
	out, err := Inflate(compress(t, solEvent))
	require.NoError(t, err)
	assert.Equal(t, solEvent, string(out))

	_, err = Inflate([]byte("not zlib"))
	assert.ErrorIs(t, err, ErrDecompression)

	_, err = Inflate(nil)
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestReplaySource(t *testing.T) {
	src := NewReplaySource(strings.NewReader("one\n\ntwo\n"))
	ctx := context.Background()

	frame, err := src.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "one", string(frame))

	frame, err = src.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(frame))

	_, err = src.Receive(ctx, time.Second)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestReplaySource_SkipsOversizedLine(t *testing.T) {
	huge := strings.Repeat("x", maxFrameSize+1)
	src := NewReplaySource(strings.NewReader("one\n" + huge + "\r\ntwo\r\n" + huge))
	ctx := context.Background()

	frame, err := src.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "one", string(frame))

	_, err = src.Receive(ctx, time.Second)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	frame, err = src.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(frame))

	// Unterminated at end of input.
	_, err = src.Receive(ctx, time.Second)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = src.Receive(ctx, time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplaySource_AcceptsLineAtSizeLimit(t *testing.T) {
	limit := strings.Repeat("x", maxFrameSize)
	src := NewReplaySource(strings.NewReader(limit + "\n"))

	frame, err := src.Receive(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Len(t, frame, maxFrameSize)
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	d := NewDispatcher(2)
	var running, peak atomic.Int32

	for i := 0; i < 10; i++ {
		d.Go(func() {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	d.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestListener_DispatchesToEveryProcessor(t *testing.T) {
	src := &scriptedSource{results: []sourceResult{
		{err: ErrTimeout},
		{frame: compress(t, solEvent)},
		{err: ErrTimeout},
		{frame: compress(t, otherEvent)},
	}}
	metrics := NewMetrics()
	l := NewListener(ListenerConfig{
		Source:   src,
		Interest: parser.NewInterestSet("mother gaia"),
		Workers:  2,
		Metrics:  metrics,
	})
	a := &recordingProcessor{name: "a"}
	b := &recordingProcessor{name: "b"}
	l.Register(a)
	l.Register(b)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, 2, a.count())
	assert.Equal(t, 2, b.count())
	for _, facts := range a.seen {
		if facts.Region == "Sol" {
			assert.True(t, facts.Relevant())
			assert.Len(t, facts.Factions, 2)
		} else {
			assert.Equal(t, "Lave", facts.Region)
			assert.False(t, facts.Relevant())
		}
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FramesReceived))
}

func TestListener_IsolatesFailingProcessors(t *testing.T) {
	src := &scriptedSource{results: []sourceResult{
		{frame: compress(t, solEvent)},
		{frame: compress(t, solEvent)},
	}}
	metrics := NewMetrics()
	l := NewListener(ListenerConfig{
		Source:   src,
		Interest: parser.NewInterestSet("Mother Gaia"),
		Workers:  1,
		Metrics:  metrics,
	})
	healthy := &recordingProcessor{name: "healthy"}
	failing := &recordingProcessor{name: "failing", err: store.Failure(errors.New("db down"))}
	l.Register(panickingProcessor{})
	l.Register(failing)
	l.Register(healthy)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, 2, healthy.count())
	assert.Equal(t, 2, failing.count())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ProcessorFailures.WithLabelValues("failing", KindStoreFailure)))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ProcessorFailures.WithLabelValues("panics", KindOther)))
}

func TestListener_SkipsBadFrames(t *testing.T) {
	src := &scriptedSource{results: []sourceResult{
		{frame: []byte("garbage")},
		{frame: compress(t, `{"header":{}}`)},
		{frame: compress(t, "not json")},
		{frame: compress(t, solEvent)},
	}}
	metrics := NewMetrics()
	l := NewListener(ListenerConfig{
		Source:   src,
		Interest: parser.NewInterestSet("Mother Gaia"),
		Metrics:  metrics,
	})
	p := &recordingProcessor{name: "p"}
	l.Register(p)

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, 1, p.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(KindDecompression)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(KindMissingField)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(KindMalformedInput)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProcessorFailures.WithLabelValues("p", KindMissingField)))
}

func TestListener_ReplayWithIdentity(t *testing.T) {
	l := NewListener(ListenerConfig{
		Source:     NewReplaySource(strings.NewReader(solEvent + "\n" + otherEvent + "\n")),
		Interest:   parser.NewInterestSet("Lave Radio"),
		Decompress: Identity,
	})
	p := &recordingProcessor{name: "p"}
	l.Register(p)

	require.NoError(t, l.Run(context.Background()))
	require.Equal(t, 2, p.count())
}

func TestListener_ReplayContinuesPastOversizedLine(t *testing.T) {
	huge := strings.Repeat("x", maxFrameSize+1)
	metrics := NewMetrics()
	l := NewListener(ListenerConfig{
		Source:     NewReplaySource(strings.NewReader(huge + "\n" + otherEvent + "\n")),
		Interest:   parser.NewInterestSet("Lave Radio"),
		Decompress: Identity,
		Metrics:    metrics,
	})
	p := &recordingProcessor{name: "p"}
	l.Register(p)

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 1, p.count())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FramesReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(KindOversized)))
}

func TestListener_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{results: []sourceResult{{frame: compress(t, solEvent)}}}
	l := NewListener(ListenerConfig{Source: src})
	p := &recordingProcessor{name: "p"}
	l.Register(p)

	require.NoError(t, l.Run(ctx))
	assert.Equal(t, 0, p.count())
}

func TestListener_ReturnsSourceErrors(t *testing.T) {
	broken := errors.New("socket gone")
	src := &scriptedSource{results: []sourceResult{{err: broken}}}
	l := NewListener(ListenerConfig{Source: src})

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, broken)
}

func TestMetrics_Reconciled(t *testing.T) {
	m := NewMetrics()
	m.Reconciled("presences", 10*time.Millisecond, 3)
	m.Reconciled("presences", 10*time.Millisecond, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Reconciliations.WithLabelValues("presences")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.RowsPruned.WithLabelValues("presences")))

	var nilMetrics *Metrics
	nilMetrics.Reconciled("presences", time.Millisecond, 1)
	nilMetrics.frameReceived()
}
