package normalize

// RetryPolicy controls how callers retry generation when a response
// fails to normalize. The policy is a plain value passed into the
// caller, not baked into the parsing logic: parsing stays deterministic
// while the caller adjusts sampling temperature between attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of generation attempts allowed.
	MaxAttempts int
	// BaseTemperature is the sampling temperature for the first attempt.
	BaseTemperature float64
	// TemperatureStep is added to the temperature on each retry.
	TemperatureStep float64
	// MaxTemperature caps the temperature regardless of attempt count.
	MaxTemperature float64
}

// DefaultRetryPolicy returns the standard policy: three attempts,
// warming from 0.2 up by 0.3 per retry, capped at 1.0.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		BaseTemperature: 0.2,
		TemperatureStep: 0.3,
		MaxTemperature:  1.0,
	}
}

// ShouldRetry returns true if another attempt is allowed after the
// given 1-indexed attempt number.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// TemperatureFor returns the sampling temperature for the given
// 1-indexed attempt, clamped to MaxTemperature.
func (p RetryPolicy) TemperatureFor(attempt int) float64 {
	if attempt < 1 {
		attempt = 1
	}
	t := p.BaseTemperature + float64(attempt-1)*p.TemperatureStep
	if t > p.MaxTemperature {
		t = p.MaxTemperature
	}
	return t
}
