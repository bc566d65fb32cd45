package retry

import "github.com/cenkalti/backoff/v4"

func newExponential(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.RandomizationFactor = policy.RandomizationFactor
	exp.MaxElapsedTime = policy.MaxElapsedTime
	exp.Reset()
	return exp
}
