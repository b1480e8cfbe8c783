package internaldefs

import (
	"github.com/MrEthical07/thunderauth"
)

// Member is one series of a Family.
type Member struct {
	ID    thunderauth.MetricID
	Value string
}

// Family groups client counters that describe the same concern. Members are
// told apart by Label; a family with an empty Label has exactly one member.
type Family struct {
	Name    string
	Help    string
	Label   string
	Members []Member
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   thunderauth.MetricID
	Name string
	Help string
}

// Families lists every exported counter family in exposition order.
var Families = []Family{
	{
		Name:  "thunderauth_http_attempts_total",
		Help:  "HTTP attempts by outcome. A 401 counts as both failure and unauthorized.",
		Label: "outcome",
		Members: []Member{
			{ID: thunderauth.MetricRequestSuccess, Value: "success"},
			{ID: thunderauth.MetricRequestFailure, Value: "failure"},
			{ID: thunderauth.MetricUnauthorized, Value: "unauthorized"},
		},
	},
	{
		Name:  "thunderauth_token_refresh_total",
		Help:  "Refresh-token exchanges triggered by a 401 or an explicit refresh.",
		Label: "result",
		Members: []Member{
			{ID: thunderauth.MetricRefreshAttempt, Value: "sent"},
			{ID: thunderauth.MetricRefreshSuccess, Value: "stored"},
			{ID: thunderauth.MetricRefreshFailure, Value: "failed"},
			{ID: thunderauth.MetricRefreshNoToken, Value: "no_refresh_token"},
		},
	},
	{
		Name:  "thunderauth_retry_after_refresh_total",
		Help:  "Requests replayed once after a 401 and a successful refresh, by the replay's outcome.",
		Label: "outcome",
		Members: []Member{
			{ID: thunderauth.MetricRetrySuccess, Value: "success"},
			{ID: thunderauth.MetricRetryFailure, Value: "failure"},
		},
	},
	{
		Name:  "thunderauth_auth_operations_total",
		Help:  "Account operations by kind and result.",
		Label: "operation",
		Members: []Member{
			{ID: thunderauth.MetricLoginSuccess, Value: "login_success"},
			{ID: thunderauth.MetricLoginTwoFactorRequired, Value: "login_two_factor_required"},
			{ID: thunderauth.MetricLoginFailure, Value: "login_failure"},
			{ID: thunderauth.MetricTwoFactorSuccess, Value: "two_factor_success"},
			{ID: thunderauth.MetricTwoFactorFailure, Value: "two_factor_failure"},
			{ID: thunderauth.MetricRegisterSuccess, Value: "register_success"},
			{ID: thunderauth.MetricRegisterFailure, Value: "register_failure"},
			{ID: thunderauth.MetricPasswordResetRequest, Value: "forgot_password"},
			{ID: thunderauth.MetricPasswordResetConfirm, Value: "reset_password"},
			{ID: thunderauth.MetricEmailConfirm, Value: "confirm_email"},
			{ID: thunderauth.MetricLogout, Value: "logout"},
		},
	},
	{
		Name:    "thunderauth_credential_write_failures_total",
		Help:    "Token writes to the credential store that failed after the server accepted the request.",
		Members: []Member{{ID: thunderauth.MetricTokenPersistFailure}},
	},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: thunderauth.MetricRequestLatency, Name: "thunderauth_http_attempt_duration_seconds", Help: "Duration of each HTTP attempt. A retry after refresh is a separate attempt."},
}

// SeriesCount is the number of counter series across Families.
func SeriesCount() int {
	n := 0
	for _, f := range Families {
		n += len(f.Members)
	}
	return n
}

// HistogramBounds are the bucket upper bounds in seconds, as exposition labels.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix names each bound for exporters that cannot use labels.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array; missing buckets are zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
