package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("host pool is closed")
	ErrAcquire    = errors.New("host acquisition timeout")
)

// Factory builds a ready host for a Pool.
type Factory func() (*Host, error)

// PoolConfig sizes a Pool.
type PoolConfig struct {
	Size           int
	AcquireTimeout time.Duration
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	InUse     int  `json:"in_use"`
	Closed    bool `json:"closed"`
}

// Pool manages a fixed set of reusable hosts
type Pool struct {
	factory Factory
	hosts   chan *Host
	size    int
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewPool creates cfg.Size hosts up front.
func NewPool(cfg PoolConfig, factory Factory, logger *zap.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool := &Pool{
		factory: factory,
		hosts:   make(chan *Host, cfg.Size),
		size:    cfg.Size,
		timeout: cfg.AcquireTimeout,
		logger:  logger.Named("pool"),
	}

	for i := 0; i < cfg.Size; i++ {
		host, err := factory()
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.hosts <- host
	}

	return pool, nil
}

// Acquire takes a host, waiting at most the acquire timeout. The pool lock
// is not held while waiting, so Release and Close proceed meanwhile.
func (p *Pool) Acquire(ctx context.Context) (*Host, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case host, ok := <-p.hosts:
		if !ok {
			return nil, ErrPoolClosed
		}
		return host, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrAcquire
	}
}

// Release resets host and returns it to the pool. A host that fails to reset
// is replaced with a fresh one.
func (p *Pool) Release(host *Host) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return host.Shutdown()
	}

	if err := host.Reset(); err != nil {
		p.logger.Warn("Host reset failed, replacing", zap.String("host_id", host.ID().String()), zap.Error(err))
		host.Shutdown()
		fresh, ferr := p.factory()
		if ferr != nil {
			p.logger.Error("Host replacement failed", zap.Error(ferr))
			return err
		}
		p.put(fresh)
		return err
	}

	p.put(host)
	return nil
}

// put returns host to the idle set, or shuts it down once the pool is closed.
func (p *Pool) put(host *Host) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		host.Shutdown()
		return
	}
	select {
	case p.hosts <- host:
	default:
		host.Shutdown()
	}
}

// Execute runs source on a pooled host.
func (p *Pool) Execute(ctx context.Context, name, source string) (*Result, error) {
	host, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(host)

	return host.Run(ctx, name, source)
}

// ExecuteFile runs the script at path on a pooled host.
func (p *Pool) ExecuteFile(ctx context.Context, path string) (*Result, error) {
	host, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(host)

	return host.RunFile(ctx, path)
}

// Close shuts down every idle host. Hosts still acquired are shut down on
// Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.hosts)

	for host := range p.hosts {
		host.Shutdown()
	}

	return nil
}

// Bindings lists the globals of a pooled host. The host goes back without a
// reset since nothing ran on it.
func (p *Pool) Bindings(ctx context.Context) ([]string, error) {
	host, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(host)

	return host.Bindings(), nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Size:      p.size,
		Available: len(p.hosts),
		InUse:     p.size - len(p.hosts),
		Closed:    p.closed,
	}
}
