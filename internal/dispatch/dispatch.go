// Package dispatch invokes registered operations by name and normalizes
// every outcome into a CallResult envelope.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"termux-mcp/internal/registry"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindOperationNotFound
	KindValidation
	KindExecution
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "success"
	case KindOperationNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// CallResult is the uniform envelope returned for every call.
type CallResult struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Kind    ErrorKind `json:"-"`
}

func success(data any) CallResult {
	return CallResult{Success: true, Data: data}
}

func failure(kind ErrorKind, tool string, err error) CallResult {
	return CallResult{Success: false, Error: err.Error(), Tool: tool, Kind: kind}
}

// Observer is notified after every call.
type Observer func(tool string, kind ErrorKind, duration time.Duration)

type Option func(*Dispatcher)

func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observe = o }
}

// Dispatcher routes calls to the registry. It holds no per-call state and
// is safe for concurrent use.
type Dispatcher struct {
	registry *registry.Registry
	log      logrus.FieldLogger
	observe  Observer
}

func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: reg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleCall runs the named operation. It never panics and never returns
// an executor failure other than through the envelope.
func (d *Dispatcher) HandleCall(ctx context.Context, name string, args map[string]any) CallResult {
	start := time.Now()
	res := d.call(ctx, name, args)
	elapsed := time.Since(start)

	entry := d.log.WithFields(logrus.Fields{
		"tool":     name,
		"outcome":  res.Kind.String(),
		"duration": elapsed,
	})
	if res.Success {
		entry.Debug("tool call completed")
	} else {
		entry.WithField("error", res.Error).Warn("tool call failed")
	}
	if d.observe != nil {
		d.observe(name, res.Kind, elapsed)
	}
	return res
}

func (d *Dispatcher) call(ctx context.Context, name string, args map[string]any) CallResult {
	ex, ok := d.registry.Executor(name)
	if !ok {
		return failure(KindOperationNotFound, name, errors.New("Tool not found: "+name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if v, ok := d.registry.Validator(name); ok {
		if err := v.Validate(args); err != nil {
			return failure(KindValidation, name, fmt.Errorf("invalid arguments: %w", err))
		}
	}
	data, err := invoke(ctx, ex, args)
	if err != nil {
		kind := KindExecution
		if errors.Is(err, registry.ErrInvalidArgument) {
			kind = KindValidation
		}
		return failure(kind, name, err)
	}
	return success(data)
}

func invoke(ctx context.Context, ex registry.Executor, args map[string]any) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()
	return ex.Invoke(ctx, args)
}

// ListOperations returns every descriptor in registration order.
func (d *Dispatcher) ListOperations() []registry.Descriptor {
	return d.registry.List()
}

// DescribeOperation returns the descriptor for name.
func (d *Dispatcher) DescribeOperation(name string) (registry.Descriptor, bool) {
	return d.registry.Get(name)
}
