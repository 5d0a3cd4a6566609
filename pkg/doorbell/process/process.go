package process

import (
	"context"
	"sync"

	"github.com/tauraamui/dragondoorbell/pkg/log"
)

type Process interface {
	Setup() Process
	Start()
	Stop()
	Wait()
}

type Settings struct {
	WaitForShutdownMsg string
	// Process launches its work and hands back one channel per
	// goroutine started, each closed once that goroutine exits.
	Process func(context.Context) []chan interface{}
}

func New(settings Settings) Process {
	return &process{
		waitForShutdownMsg: settings.WaitForShutdownMsg,
		process:            settings.Process,
	}
}

type process struct {
	mu                 sync.Mutex
	process            func(context.Context) []chan interface{}
	waitForShutdownMsg string
	canceller          context.CancelFunc
	signals            []chan interface{}
}

func (p *process) logShutdown() {
	if len(p.waitForShutdownMsg) > 0 {
		log.Info(p.waitForShutdownMsg)
	}
}

func (p *process) Setup() Process { return p }

func (p *process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canceller != nil {
		return
	}
	ctx, canceller := context.WithCancel(context.Background())
	p.canceller = canceller
	p.signals = append(p.signals, p.process(ctx)...)
}

func (p *process) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canceller == nil {
		return
	}
	p.logShutdown()
	p.canceller()
}

func (p *process) Wait() {
	p.mu.Lock()
	signals := p.signals
	p.mu.Unlock()
	for _, sig := range signals {
		<-sig
	}
}

// Group starts processes in order and stops them in reverse.
type Group struct {
	mu    sync.Mutex
	procs []Process
}

func (g *Group) Add(proc Process) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.procs = append(g.procs, proc)
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.procs)
}

func (g *Group) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, proc := range g.procs {
		proc.Start()
	}
}

func (g *Group) StopAndWait() {
	g.mu.Lock()
	procs := g.procs
	g.procs = nil
	g.mu.Unlock()

	for i := len(procs) - 1; i >= 0; i-- {
		procs[i].Stop()
	}

	wg := sync.WaitGroup{}
	wg.Add(len(procs))
	for _, proc := range procs {
		go func(wg *sync.WaitGroup, proc Process) {
			defer wg.Done()
			proc.Wait()
		}(&wg, proc)
	}
	wg.Wait()
}
