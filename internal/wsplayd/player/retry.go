package player

import (
	"time"

	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

// Attempt is one stage of a RetryPolicy
type Attempt struct {
	// Delay is measured from the previous stage (or from Start)
	Delay time.Duration
	// Needed reports whether the condition being recovered from still holds.
	// When it returns false the policy is satisfied and stops.
	Needed func() bool
	// Action is the recovery step; nil means check only
	Action func()
}

// RetryPolicy runs a chain of delayed recovery attempts. If the last attempt
// is still needed, OnExhausted runs once after its Action.
type RetryPolicy struct {
	Attempts    []Attempt
	OnExhausted func()
}

// RetryRun is a started policy
type RetryRun struct {
	policy  RetryPolicy
	scope   *timer.Scope
	current timer.Timer
	done    bool
}

// Start schedules the first attempt. Timers are acquired from scope, so
// releasing the scope cancels the run.
func (p RetryPolicy) Start(scope *timer.Scope) *RetryRun {
	r := &RetryRun{policy: p, scope: scope}
	r.schedule(0)
	return r
}

func (r *RetryRun) schedule(i int) {
	if i >= len(r.policy.Attempts) {
		r.done = true
		return
	}
	attempt := r.policy.Attempts[i]
	r.current = r.scope.AfterFunc(attempt.Delay, func() {
		if r.done {
			return
		}
		if attempt.Needed != nil && !attempt.Needed() {
			r.done = true
			return
		}
		if attempt.Action != nil {
			attempt.Action()
		}
		if r.done {
			// the action stopped the run
			return
		}
		if i == len(r.policy.Attempts)-1 {
			r.done = true
			if r.policy.OnExhausted != nil {
				r.policy.OnExhausted()
			}
			return
		}
		r.schedule(i + 1)
	})
}

// Stop cancels any pending attempt
func (r *RetryRun) Stop() {
	r.done = true
	if r.current != nil {
		r.current.Stop()
	}
}

// Done reports whether the run finished or was stopped
func (r *RetryRun) Done() bool {
	return r.done
}
