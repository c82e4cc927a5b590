package driver

import "time"

// PollResult is the outcome of a bounded poll: the condition became true,
// is still pending (between attempts), or the attempt budget ran out.
// Making GaveUp explicit keeps the publish-skip-on-timeout branch in the
// asset pipeline an explicit decision rather than an inferred one.
type PollResult int

const (
	PollReady PollResult = iota
	PollStillPending
	PollGaveUp
)

// pollUntil invokes check up to maxAttempts times, sleeping interval
// between attempts. It returns PollReady as soon as check reports true,
// PollGaveUp when attempts run out, and check's error verbatim if one
// occurs (also as PollGaveUp, since the condition was never observed).
func pollUntil(maxAttempts int, interval time.Duration, sleep func(time.Duration), check func() (bool, error)) (PollResult, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		done, err := check()
		if err != nil {
			return PollGaveUp, err
		}
		if done {
			return PollReady, nil
		}
		if attempt < maxAttempts {
			sleep(interval)
		}
	}
	return PollGaveUp, nil
}
