package internaldefs

import (
	authflow "github.com/ferrylane/authflow"
)

// CounterDef binds a [authflow.MetricID] to its stable exported name.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram [authflow.MetricID] to its stable exported
// name.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in snapshot order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricRegisterSuccess, Name: "authflow_register_success_total", Help: "Completed registrations."},
	{ID: authflow.MetricRegisterFailure, Name: "authflow_register_failure_total", Help: "Failed registration attempts."},
	{ID: authflow.MetricRegisterDuplicate, Name: "authflow_register_duplicate_total", Help: "Registration attempts rejected as duplicate."},
	{ID: authflow.MetricVerificationCodeSent, Name: "authflow_verification_code_sent_total", Help: "Verification codes delivered, including resends."},
	{ID: authflow.MetricEmailVerified, Name: "authflow_email_verified_total", Help: "Successful email verifications."},
	{ID: authflow.MetricEmailVerificationFailure, Name: "authflow_email_verification_failure_total", Help: "Rejected email verification attempts."},
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Successful login attempts."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Failed login attempts."},
	{ID: authflow.MetricRefreshSuccess, Name: "authflow_refresh_success_total", Help: "Honored refresh operations."},
	{ID: authflow.MetricRefreshFailure, Name: "authflow_refresh_failure_total", Help: "Rejected refresh operations."},
	{ID: authflow.MetricLogout, Name: "authflow_logout_total", Help: "Logout operations."},
	{ID: authflow.MetricPasswordResetRequest, Name: "authflow_password_reset_request_total", Help: "Password reset requests."},
	{ID: authflow.MetricPasswordResetConfirmSuccess, Name: "authflow_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authflow.MetricPasswordResetConfirmFailure, Name: "authflow_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: authflow.MetricAuthenticateSuccess, Name: "authflow_authenticate_success_total", Help: "Access tokens the engine honored."},
	{ID: authflow.MetricAuthenticateFailure, Name: "authflow_authenticate_failure_total", Help: "Access tokens the engine rejected."},
	{ID: authflow.MetricMailFailure, Name: "authflow_mail_failure_total", Help: "Mailer delivery failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricAuthenticateLatency, Name: "authflow_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with metric-name-safe text.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exporters publish.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
