package locator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Poll defaults: interface regions that mount asynchronously get up to four
// seconds to appear.
const (
	DefaultMaxAttempts  = 20
	DefaultPollInterval = 200 * time.Millisecond
)

// PollConfig bounds the retry loop. The interval is fixed; there is no
// exponential backoff.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

func (c PollConfig) withDefaults() PollConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	return c
}

// DocumentFunc supplies the current surface document. It is called once per
// attempt so dynamic UI changes are observed between retries.
type DocumentFunc func() (*goquery.Document, error)

// Poller wraps a Resolver with bounded, fixed-interval retry for elements
// that may not exist yet.
type Poller struct {
	res *Resolver
	log logrus.FieldLogger
}

// NewPoller creates a Poller around the given Resolver.
func NewPoller(res *Resolver, log logrus.FieldLogger) *Poller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{res: res, log: log}
}

// Pending is a single in-flight polled resolution. Attempts are strictly
// sequential with one outstanding timer at a time. Cancel stops the loop;
// no result is delivered after cancellation.
type Pending struct {
	done       chan Result
	cancel     chan struct{}
	cancelOnce sync.Once
}

// Done delivers exactly one Result: the first success, or the last failure
// once attempts are exhausted.
func (p *Pending) Done() <-chan Result { return p.done }

// Cancel stops the poll loop. Safe to call more than once.
func (p *Pending) Cancel() {
	p.cancelOnce.Do(func() { close(p.cancel) })
}

// Start begins polling. With MaxAttempts == 1 this is behaviorally identical
// to a single direct Resolve: one attempt, no timer scheduled.
func (p *Poller) Start(docFn DocumentFunc, loc Locator, cfg PollConfig) *Pending {
	cfg = cfg.withDefaults()
	pn := &Pending{done: make(chan Result, 1), cancel: make(chan struct{})}

	go func() {
		var last Result
		for attempt := 1; ; attempt++ {
			last = p.resolveOnce(docFn, loc)
			if last.OK || attempt >= cfg.MaxAttempts {
				break
			}
			p.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      cfg.MaxAttempts,
			}).Debug("locator not resolved, retrying")

			timer := time.NewTimer(cfg.Interval)
			select {
			case <-timer.C:
			case <-pn.cancel:
				timer.Stop()
				return
			}
		}
		select {
		case pn.done <- last:
		case <-pn.cancel:
		}
	}()
	return pn
}

// Await is the synchronous form of Start, for callers with no event loop of
// their own.
func (p *Poller) Await(ctx context.Context, docFn DocumentFunc, loc Locator, cfg PollConfig) Result {
	pn := p.Start(docFn, loc, cfg)
	select {
	case res := <-pn.Done():
		return res
	case <-ctx.Done():
		pn.Cancel()
		return Result{Strategy: StrategyNone, Err: ctx.Err().Error()}
	}
}

func (p *Poller) resolveOnce(docFn DocumentFunc, loc Locator) Result {
	doc, err := docFn()
	if err != nil {
		return Result{Strategy: StrategyNone, Err: fmt.Sprintf("surface unavailable: %v", err)}
	}
	return p.res.Resolve(doc, loc)
}
