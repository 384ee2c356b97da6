package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/pipeline"
)

type call struct {
	path, dest, runID string
	hasDeadline       bool
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls []call
	err   error
	block chan struct{}
}

func (p *recordingProcessor) ProcessFile(ctx context.Context, path, dest string) (*pipeline.Result, error) {
	if p.block != nil {
		<-p.block
	}
	_, ok := ctx.Deadline()
	p.mu.Lock()
	p.calls = append(p.calls, call{path: path, dest: dest, runID: common.RunIDFromContext(ctx), hasDeadline: ok})
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Result{SourcePath: path, OutputPath: dest}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestQueueProcessesEveryJob(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewProcessorQueue(proc, quiet(), WithWorkers(3), WithQueueSize(2), WithProcessTimeout(time.Minute))

	ids := map[string]string{}
	for _, p := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		id := uuid.New()
		ids[p] = id.String()
		require.NoError(t, q.Enqueue(context.Background(), Job{RunID: id, Path: p, Dest: p + ".json"}))
	}
	q.Shutdown(context.Background())

	require.Len(t, proc.calls, 5)
	for _, c := range proc.calls {
		assert.Equal(t, ids[c.path], c.runID, "run id travels with the job")
		assert.Equal(t, c.path+".json", c.dest)
		assert.True(t, c.hasDeadline)
	}
}

func TestQueueFailuresDoNotStopWorkers(t *testing.T) {
	proc := &recordingProcessor{err: common.ErrUnsupportedFormat}
	q := NewProcessorQueue(proc, quiet(), WithWorkers(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{RunID: uuid.New(), Path: "x.docx"}))
	}
	q.Shutdown(context.Background())
	assert.Len(t, proc.calls, 3)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, quiet())
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{RunID: uuid.New(), Path: "a.txt"})
	assert.True(t, errors.Is(err, ErrQueueClosed))
}

func TestEnqueueBackpressureHonorsContext(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet(), WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one in the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{RunID: uuid.New(), Path: "1"}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{RunID: uuid.New(), Path: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{RunID: uuid.New(), Path: "3"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(proc.block)
	q.Shutdown(context.Background())
	assert.Len(t, proc.calls, 2)
}
