package session

import "price-scout/errs"

type AttachState int

const (
	AttachPending AttachState = iota
	Attached
	AttachExhausted
)

// Attacher is the bounded attachment state machine: each Tick makes one
// attempt, and after maxAttempts failures it stays exhausted. Scheduling
// ticks at a fixed interval is the caller's job.
type Attacher struct {
	try         func() bool
	maxAttempts int
	attempts    int
	state       AttachState
}

func NewAttacher(maxAttempts int, try func() bool) *Attacher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Attacher{try: try, maxAttempts: maxAttempts}
}

func (a *Attacher) Tick() AttachState {
	if a.state != AttachPending {
		return a.state
	}
	a.attempts++
	switch {
	case a.try():
		a.state = Attached
	case a.attempts >= a.maxAttempts:
		a.state = AttachExhausted
	}
	return a.state
}

func (a *Attacher) Attempts() int { return a.attempts }

func (a *Attacher) State() AttachState { return a.state }

// Err is the fatal error once exhausted, nil otherwise.
func (a *Attacher) Err() error {
	if a.state != AttachExhausted {
		return nil
	}
	return errs.NewAttachmentExhausted(a.attempts)
}
