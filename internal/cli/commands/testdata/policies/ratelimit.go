package ratelimit

// Context is the mediation context handed to every flow.
type Context struct{}

// Limit rejects requests over the configured rate.
//
//@choreo/policy_validator.InFlow
//@choreo/policy_validator.Config:rate
func Limit(ctx *Context, rate int, burst int) error {
	return nil
}

// Report records the response status.
//
//@choreo/policy_validator.OutFlow
func Report(ctx *Context) {}
