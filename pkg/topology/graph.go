package topology

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/fluxion/pkg/event"
	"github.com/cuemby/fluxion/pkg/log"
)

// Stage is one transform node: it consumes in until closed or ctx is
// done, writes derived events to out, and must close out before
// returning (mirroring pkg/source.Driver.Run and the aggregate and
// reduce transforms' Run methods).
type Stage interface {
	Run(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error
}

// StageFunc adapts a plain function to Stage.
type StageFunc func(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error

func (f StageFunc) Run(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error {
	return f(ctx, in, out)
}

// SourceFunc drives a node with no upstream input of its own, such as a
// pkg/source.Driver.
type SourceFunc func(ctx context.Context, out chan<- *event.LogEvent) error

// SinkFunc drives a terminal node with no downstream output.
type SinkFunc func(ctx context.Context, in <-chan *event.LogEvent) error

type node struct {
	name   string
	source SourceFunc
	stage  Stage
	inputs []string
}

// Graph is a directed, acyclic wiring of named nodes. The zero value is
// not usable; construct with NewGraph.
type Graph struct {
	nodes      map[string]*node
	order      []string
	bufferSize int
}

// NewGraph returns an empty Graph. bufferSize sets the capacity of every
// channel the graph allocates between nodes; 0 falls back to 256.
func NewGraph(bufferSize int) *Graph {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Graph{nodes: make(map[string]*node), bufferSize: bufferSize}
}

// AddSource registers a node with no upstream input, e.g. a pkg/source
// adapter's Run method.
func (g *Graph) AddSource(name string, run SourceFunc) error {
	return g.add(name, &node{name: name, source: run})
}

// AddStage registers a node that reads from the named upstream nodes
// (merged if more than one) and writes derived events downstream.
func (g *Graph) AddStage(name string, run Stage, inputs ...string) error {
	return g.add(name, &node{name: name, stage: run, inputs: inputs})
}

// AddSink registers a terminal node with no downstream output.
func (g *Graph) AddSink(name string, run SinkFunc, inputs ...string) error {
	stage := StageFunc(func(ctx context.Context, in <-chan *event.LogEvent, out chan<- *event.LogEvent) error {
		defer close(out)
		return run(ctx, in)
	})
	return g.add(name, &node{name: name, stage: stage, inputs: inputs})
}

func (g *Graph) add(name string, n *node) error {
	if name == "" {
		return fmt.Errorf("topology: node name must not be empty")
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("topology: node %q already registered", name)
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return nil
}

// Validate checks that every input reference resolves to a registered
// node and that the graph contains no cycle, without running anything.
// Run calls this itself; exported separately so callers can check a
// graph's wiring (e.g. a CLI "validate" subcommand) without dialing any
// of its sources.
func (g *Graph) Validate() error {
	return g.validate()
}

// validate checks that every input reference resolves to a registered
// node and that the graph contains no cycle.
func (g *Graph) validate() error {
	for _, n := range g.nodes {
		for _, in := range n.inputs {
			if _, ok := g.nodes[in]; !ok {
				return fmt.Errorf("topology: node %q references unknown input %q", n.name, in)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("topology: cycle detected at node %q", name)
		}
		color[name] = gray
		for _, in := range g.nodes[name].inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Run wires every registered node's channels and drives them concurrently
// until ctx is cancelled or every source has exhausted its input. The
// first node to return a non-nil error cancels every other node; Run
// returns that error once all nodes have unwound.
func (g *Graph) Run(parent context.Context) error {
	if err := g.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	logger := log.WithComponent("topology")

	outs := make(map[string]chan *event.LogEvent, len(g.nodes))
	for name := range g.nodes {
		outs[name] = make(chan *event.LogEvent, g.bufferSize)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(name string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		logger.Warn().Err(err).Str("node", name).Msg("pipeline node exited with error")
		if firstErr == nil {
			firstErr = fmt.Errorf("topology: node %q: %w", name, err)
		}
		cancel()
	}

	for name, n := range g.nodes {
		name, n := name, n
		wg.Add(1)
		go func() {
			defer wg.Done()

			if n.source != nil {
				fail(name, n.source(ctx, outs[name]))
				return
			}

			var in <-chan *event.LogEvent
			switch len(n.inputs) {
			case 0:
				closed := make(chan *event.LogEvent)
				close(closed)
				in = closed
			case 1:
				in = outs[n.inputs[0]]
			default:
				ins := make([]<-chan *event.LogEvent, len(n.inputs))
				for i, src := range n.inputs {
					ins[i] = outs[src]
				}
				in = fanIn(ctx, ins...)
			}
			fail(name, n.stage.Run(ctx, in, outs[name]))
		}()
	}

	wg.Wait()
	return firstErr
}

// fanIn merges several upstream channels into one, closing the result
// once every source channel has closed or ctx ends.
func fanIn(ctx context.Context, sources ...<-chan *event.LogEvent) <-chan *event.LogEvent {
	merged := make(chan *event.LogEvent)
	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, c := range sources {
		c := c
		go func() {
			defer wg.Done()
			for {
				select {
				case ev, ok := <-c:
					if !ok {
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}
