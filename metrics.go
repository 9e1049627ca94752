package auth

// Operations reported to Metrics.
const (
	OpSignup        = "signup"
	OpVerifyEmail   = "verify_email"
	OpLogin         = "login"
	OpUpdateProfile = "update_profile"
)

// Metrics records the outcome of auth operations. Outcome is "ok" or the
// text code of the returned error.
type Metrics interface {
	RecordOutcome(operation, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) RecordOutcome(string, string) {}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var code string
	if richErr, ok := asRichError(err); ok {
		code = richErr.TextCode
	}
	if code == "" {
		return TextCodeInternal
	}
	return code
}
