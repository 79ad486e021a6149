package topology

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fluxion/pkg/event"
)

func fixedSource(messages []string) SourceFunc {
	return func(ctx context.Context, out chan<- *event.LogEvent) error {
		defer close(out)
		for _, m := range messages {
			ev := event.NewLogEvent(event.ObjectFrom(map[string]event.Value{
				"message": event.String(m),
			}))
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

func upperStage() Stage {
	return StageFunc(func(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error {
		defer close(out)
		for {
			select {
			case ev, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

func collectingSink(dst *[]string, mu *sync.Mutex) SinkFunc {
	return func(ctx context.Context, in <-chan *event.LogEvent) error {
		for {
			select {
			case ev, ok := <-in:
				if !ok {
					return nil
				}
				s, _ := ev.Message().AsString()
				mu.Lock()
				*dst = append(*dst, s)
				mu.Unlock()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func TestGraph_LinearPipeline(t *testing.T) {
	g := NewGraph(4)
	var got []string
	var mu sync.Mutex

	require.NoError(t, g.AddSource("in", fixedSource([]string{"a", "b", "c"})))
	require.NoError(t, g.AddStage("pass", upperStage(), "in"))
	require.NoError(t, g.AddSink("out", collectingSink(&got, &mu), "pass"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Run(ctx))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestGraph_FanIn(t *testing.T) {
	g := NewGraph(4)
	var got []string
	var mu sync.Mutex

	require.NoError(t, g.AddSource("left", fixedSource([]string{"l1", "l2"})))
	require.NoError(t, g.AddSource("right", fixedSource([]string{"r1", "r2"})))
	require.NoError(t, g.AddSink("out", collectingSink(&got, &mu), "left", "right"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Run(ctx))

	assert.ElementsMatch(t, []string{"l1", "l2", "r1", "r2"}, got)
}

func TestGraph_UnknownInputRejected(t *testing.T) {
	g := NewGraph(4)
	require.NoError(t, g.AddStage("pass", upperStage(), "missing"))
	err := g.Run(context.Background())
	assert.ErrorContains(t, err, "unknown input")
}

func TestGraph_CycleRejected(t *testing.T) {
	g := NewGraph(4)
	require.NoError(t, g.AddStage("a", upperStage(), "b"))
	require.NoError(t, g.AddStage("b", upperStage(), "a"))
	err := g.Run(context.Background())
	assert.ErrorContains(t, err, "cycle")
}

func TestGraph_DuplicateNodeNameRejected(t *testing.T) {
	g := NewGraph(4)
	require.NoError(t, g.AddSource("in", fixedSource(nil)))
	err := g.AddSource("in", fixedSource(nil))
	assert.ErrorContains(t, err, "already registered")
}

func TestGraph_NodeErrorCancelsOthers(t *testing.T) {
	g := NewGraph(4)
	boom := StageFunc(func(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error {
		defer close(out)
		return assert.AnError
	})

	require.NoError(t, g.AddSource("in", fixedSource([]string{"a"})))
	require.NoError(t, g.AddStage("boom", boom, "in"))

	var got []string
	var mu sync.Mutex
	require.NoError(t, g.AddSink("out", collectingSink(&got, &mu), "boom"))

	err := g.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
}
