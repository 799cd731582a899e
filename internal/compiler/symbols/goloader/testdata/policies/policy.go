package policies

import (
	"net/http"
	"time"

	"example.com/acme/policies/mediation"
)

// Timeout is not a function.
const Timeout = 5 * time.Second

// AddHeader sets a header on the request.
//
//@choreo/policy_validator.InFlow
//@choreo/policy_validator.Config:name
func AddHeader(ctx *mediation.Context, name string, value string) error {
	return nil
}

//@choreo/policy_validator.OutFlow
func rewriteResponse(ctx mediation.Context, res *http.Response) {}

//@FaultFlow
func OnFault(ctx mediation.Context, codes ...int) (bool, error) {
	return false, nil
}

//@choreo/policy_validator.Config:missing
func Helper(m map[string]int, d time.Duration, _ any) {}

type handler struct{}

//@choreo/policy_validator.InFlow
func (handler) Handle(ctx mediation.Context) {}
