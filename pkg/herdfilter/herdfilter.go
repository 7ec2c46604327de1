// Package herdfilter drives the filter-as-you-type herd table. Every input
// starts a new generation; the previous request is cancelled and only the
// result of the latest generation is ever delivered.
package herdfilter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-herdform/pkg/listing"
)

// ErrSuperseded is returned when a newer input replaced the request.
var ErrSuperseded = errors.New("herdfilter: superseded by a newer input")

// DefaultDebounce is the quiet period Run waits for before querying.
const DefaultDebounce = 150 * time.Millisecond

// Querier is the herd surface of listing.Fetcher.
type Querier interface {
	Herd(ctx context.Context) ([]listing.Cow, error)
	FilterHerd(ctx context.Context, id int) ([]listing.Cow, error)
}

var _ Querier = (*listing.Fetcher)(nil)

// Result is the outcome of one generation.
type Result struct {
	Generation uint64
	Input      string
	// Filter is nil when the input did not start with an integer and the
	// full herd was listed.
	Filter *int
	Cows   []listing.Cow
	Err    error
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the quiet period used by Run.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller serialises filter inputs into generations.
type Controller struct {
	q        Querier
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// New builds a Controller over q.
func New(q Querier, opts ...Option) *Controller {
	c := &Controller{q: q, debounce: DefaultDebounce, log: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Generation returns the latest generation number.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) next(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return reqCtx, c.gen
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// deliverIfCurrent holds the lock while delivering so no newer generation can
// start between the check and the callback.
func (c *Controller) deliverIfCurrent(res Result, deliver func(Result)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != res.Generation {
		return false
	}
	deliver(res)
	return true
}

// ApplyIfCurrent calls fn with res only while res is the latest generation
// and reports whether it did. fn runs under the generation lock and must not
// call back into the Controller.
func (c *Controller) ApplyIfCurrent(res Result, fn func(Result)) bool {
	return c.deliverIfCurrent(res, fn)
}

// Apply starts a new generation for input and waits for its result. Inputs
// that do not start with an integer list the whole herd. When a later Apply
// begins first, the result is discarded and ErrSuperseded returned.
func (c *Controller) Apply(ctx context.Context, input string) (Result, error) {
	reqCtx, gen := c.next(ctx)
	res := Result{Generation: gen, Input: input}

	var (
		cows []listing.Cow
		err  error
	)
	if id, ok := ParseFilter(input); ok {
		res.Filter = &id
		cows, err = c.q.FilterHerd(reqCtx, id)
	} else {
		cows, err = c.q.Herd(reqCtx)
	}

	if !c.current(gen) {
		return res, ErrSuperseded
	}
	if err != nil {
		res.Err = err
		return res, fmt.Errorf("herdfilter: generation %d: %w", gen, err)
	}
	res.Cows = cows
	return res, nil
}

// Run reads inputs until the channel closes or ctx ends. Inputs are debounced
// and each quiet period triggers one Apply; deliver is called only with the
// result of the latest generation, failures included. deliver must not call
// back into the Controller. Run waits for pending requests before returning.
func (c *Controller) Run(ctx context.Context, inputs <-chan string, deliver func(Result)) error {
	g, gctx := errgroup.WithContext(ctx)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
		have    bool
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	launch := func(input string) {
		g.Go(func() error {
			res, err := c.Apply(gctx, input)
			switch {
			case errors.Is(err, ErrSuperseded):
				return nil
			case err != nil && gctx.Err() != nil:
				return nil
			case err != nil:
				c.log.Warn("herd filter failed", zap.String("input", input), zap.Error(err))
			}
			c.deliverIfCurrent(res, deliver)
			return nil
		})
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case input, ok := <-inputs:
			if !ok {
				if have {
					stop()
					launch(pending)
				}
				break loop
			}
			pending, have = input, true
			if c.debounce == 0 {
				launch(pending)
				have = false
				continue
			}
			stop()
			timer = time.NewTimer(c.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if have {
				launch(pending)
				have = false
			}
		}
	}

	_ = g.Wait()
	return ctx.Err()
}

// ParseFilter reads a leading integer the way the page's parseInt did:
// leading space is ignored, an optional sign is accepted, a 0x prefix reads
// hexadecimal, and trailing text after the digits is ignored. ok is false
// when no digit leads the input or the value overflows.
func ParseFilter(input string) (int, bool) {
	s := strings.TrimLeft(input, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base, isDigit := 10, isDecimal
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, isDigit = 16, isHex
		s = s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(s[:end], base, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return int(n), true
}

func isDecimal(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDecimal(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
