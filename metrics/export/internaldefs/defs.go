package internaldefs

import (
	"github.com/Edraak/authgate"
)

// CounterDef names one exported engine counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs covers every engine counter, one instrument each.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricAccountLocked, Name: "authgate_account_locked_total", Help: "Logins refused by an active account cooldown."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created sessions."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logout operations."},
	{ID: authgate.MetricExchangeSuccess, Name: "authgate_exchange_success_total", Help: "Successful refresh-to-access exchanges."},
	{ID: authgate.MetricExchangeFailure, Name: "authgate_exchange_failure_total", Help: "Failed refresh-to-access exchanges."},
	{ID: authgate.MetricExchangeStaleSession, Name: "authgate_exchange_stale_session_total", Help: "Exchanges refused because the bound session was gone."},
	{ID: authgate.MetricAdminIPReset, Name: "authgate_admin_ip_reset_total", Help: "Operator IP lock resets."},
	{ID: authgate.MetricAdminAccountClear, Name: "authgate_admin_account_clear_total", Help: "Operator account lock clears."},
}
