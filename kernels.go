package herm

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Kernels returns a KernelSet which loads all sets and routes every query to
// the first provider knowing the target/observer pair in the requested frame.
func Kernels(sets ...KernelSet) KernelSet {
	return kernelList(sets)
}

type kernelList []KernelSet

func (l kernelList) Load() (Provider, error) {
	c := &composite{}
	for _, ks := range l {
		p, err := ks.Load()
		if err != nil {
			c.Close()
			return nil, err
		}
		c.providers = append(c.providers, p)
	}
	return c, nil
}

type composite struct {
	providers []Provider
}

func (c *composite) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (c *composite) route(target, observer, frame string, epoch time.Time) (Provider, []float64, error) {
	for _, p := range c.providers {
		v, err := p.Position(target, observer, frame, epoch)
		if err == nil {
			return p, v, nil
		}
		if !errors.Is(err, ErrUnknownBody) {
			return p, nil, err
		}
	}
	return nil, nil, errors.Wrapf(ErrUnknownBody, "no kernel serves %s relative to %s in %s", target, observer, frame)
}

func (c *composite) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	_, v, err := c.route(target, observer, frame, epoch)
	return v, err
}

func (c *composite) Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error) {
	if len(epochs) == 0 {
		return nil, nil
	}
	p, first, err := c.route(target, observer, frame, epochs[0])
	if err != nil {
		return nil, err
	}
	if bp, ok := p.(BatchProvider); ok {
		return bp.Positions(target, observer, frame, epochs)
	}
	out := make([][]float64, len(epochs))
	out[0] = first
	for i := 1; i < len(epochs); i++ {
		if out[i], err = p.Position(target, observer, frame, epochs[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *composite) Close() (err error) {
	for _, p := range c.providers {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}

// Serialized wraps a provider so that one handle can be shared by goroutines.
func Serialized(p Provider) Provider {
	return &serialized{p: p}
}

type serialized struct {
	sync.Mutex
	p Provider
}

func (s *serialized) Name() string {
	return s.p.Name()
}

func (s *serialized) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	s.Lock()
	defer s.Unlock()
	return s.p.Position(target, observer, frame, epoch)
}

func (s *serialized) Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error) {
	s.Lock()
	defer s.Unlock()
	if bp, ok := s.p.(BatchProvider); ok {
		return bp.Positions(target, observer, frame, epochs)
	}
	out := make([][]float64, len(epochs))
	for i, epoch := range epochs {
		v, err := s.p.Position(target, observer, frame, epoch)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *serialized) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.p.Close()
}
