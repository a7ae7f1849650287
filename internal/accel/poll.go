package accel

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// AutoWarmup sizes the warm-up phase from the active body count.
const AutoWarmup = -1

// DefaultMaxWait bounds the number of non-zero iteration reads.
const DefaultMaxWait = 1 << 20

// PollPolicy controls how Wait drives a running simulation to completion.
type PollPolicy struct {
	// MaxWait is the number of polls that may observe a running device
	// before Wait gives up with ErrTimeout.
	MaxWait int
	// WarmupIdles is the count of unconditional Idle packets sent before the
	// first poll. The pipeline reports zero iterations until every BPE has
	// been fed, so polling too early looks like completion. AutoWarmup uses
	// activeBodies-1, which together with the Idle sent by Start covers it.
	WarmupIdles int
	// KeepAliveEvery sends a keep-alive on every nth poll. Values below 2
	// mean every poll.
	KeepAliveEvery int
	// Interval is slept between polls. Zero busy-waits.
	Interval time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxWait:        DefaultMaxWait,
		WarmupIdles:    AutoWarmup,
		KeepAliveEvery: 1,
	}
}

// Outcome tags how a Wait ended.
type Outcome int

const (
	Completed Outcome = iota
	TimedOut
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Interrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type WaitResult struct {
	Outcome       Outcome
	Polls         int
	KeepAlives    int
	LastIteration uint32
	Elapsed       time.Duration
}

// Wait polls ITERATION until it reads zero or the budget runs out.
//
// On completion the session moves to Idle. On ErrTimeout, or when ctx ends,
// the session stays Running: only host-side polling stops, the device keeps
// going. Call Wait again or Stop.
func (s *Session) Wait(ctx context.Context, p PollPolicy) (res WaitResult, err error) {
	if err := s.require("wait", Running); err != nil {
		return res, err
	}

	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	warmup := p.WarmupIdles
	if warmup < 0 {
		warmup = s.activeBodies - 1
	}
	for i := 0; i < warmup; i++ {
		if err := s.send(CmdIdle, 0); err != nil {
			return res, err
		}
	}

	every := p.KeepAliveEvery
	if every < 1 {
		every = 1
	}

	for res.Polls < p.MaxWait {
		if err := ctx.Err(); err != nil {
			res.Outcome = Interrupted
			return res, err
		}

		var remaining uint32
		if remaining, err = s.Iteration(); err != nil {
			return res, err
		}
		if remaining == 0 {
			res.Outcome = Completed
			s.state = Idle
			s.log.WithFields(logrus.Fields{
				"polls":      res.Polls,
				"keepalives": res.KeepAlives,
			}).Info("simulation completed")
			return res, nil
		}

		res.Polls++
		res.LastIteration = remaining

		if res.Polls%every == 0 {
			if err := s.send(CmdKeepAlive, 0); err != nil {
				return res, err
			}
			res.KeepAlives++
		}
		if err := s.send(CmdIdle, 0); err != nil {
			return res, err
		}

		if p.Interval > 0 {
			t := time.NewTimer(p.Interval)
			select {
			case <-ctx.Done():
				t.Stop()
				res.Outcome = Interrupted
				return res, ctx.Err()
			case <-t.C:
			}
		}
	}

	res.Outcome = TimedOut
	s.log.WithFields(logrus.Fields{
		"polls":     res.Polls,
		"remaining": res.LastIteration,
	}).Warn("polling budget exhausted")
	return res, ErrTimeout
}
