package robinhood

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	tokenPath  = "/oauth2/token/"
	tokenScope = "internal"
	// tokenLifetime is the lifetime requested at login, in seconds.
	tokenLifetime = 86400
)

// RateLimit is the request quota last reported by the API.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newOAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.BaseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{tokenScope},
	}
}

// login runs the password grant. A response asking for a verification code
// fails with ErrCodeVerificationRequired; the caller sets MFACode and
// connects again.
func (a *Adapter) login(ctx context.Context) error {
	form := map[string]string{
		"grant_type":   "password",
		"scope":        tokenScope,
		"client_id":    a.cfg.ClientID,
		"expires_in":   strconv.Itoa(tokenLifetime),
		"device_token": a.cfg.DeviceToken,
		"username":     a.cfg.Username,
		"password":     a.cfg.Password,
	}
	if a.cfg.MFACode != "" {
		form["mfa_code"] = a.cfg.MFACode
	}

	req, err := a.newRequest(ctx)
	if err != nil {
		return err
	}

	var token tokenResponse

	resp, err := req.SetFormData(form).SetResult(&token).SetError(&token).Post(tokenPath)
	if err != nil {
		return checkResponse(resp, err, "failed to log in to robinhood")
	}

	if token.MFARequired {
		return errors.Newf(errors.ErrCodeVerificationRequired, "robinhood login requires %s verification code", token.MFAType)
	}

	if resp.IsError() || token.AccessToken == "" {
		detail := token.Detail
		if detail == "" {
			detail = resp.Status()
		}

		return errors.Newf(errors.ErrCodeAuthFailed, "robinhood login rejected: %s", detail)
	}

	issued := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if token.ExpiresIn > 0 {
		// oauth2 checks expiry against the wall clock
		issued.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	a.authMu.Lock()
	a.tokens = a.oauth.TokenSource(context.Background(), issued)
	a.authMu.Unlock()

	return nil
}

func (a *Adapter) dropTokens() {
	a.authMu.Lock()
	a.tokens = nil
	a.accountURL = ""
	a.accountNumber = ""
	a.authMu.Unlock()
}

// authorize attaches the bearer token to every request made after login,
// refreshing it when it expired.
func (a *Adapter) authorize(_ *resty.Client, req *resty.Request) error {
	a.authMu.RLock()
	tokens := a.tokens
	a.authMu.RUnlock()

	if tokens == nil {
		return nil
	}

	token, err := tokens.Token()
	if err != nil {
		a.logger.Warn("Token refresh failed", zap.Error(err))

		return errors.Wrap(errors.ErrCodeAuthFailed, "failed to refresh robinhood token", err)
	}

	req.SetAuthToken(token.AccessToken)

	return nil
}

// recordQuota keeps the quota headers of the latest response.
func (a *Adapter) recordQuota(_ *resty.Client, resp *resty.Response) error {
	header := resp.Header()

	limit := header.Get("X-RateLimit-Limit")
	if limit == "" {
		return nil
	}

	quota := RateLimit{UpdatedAt: a.clock.Now()}
	quota.Limit, _ = strconv.Atoi(limit)
	quota.Remaining, _ = strconv.Atoi(header.Get("X-RateLimit-Remaining"))

	if reset, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		quota.Reset = time.Unix(reset, 0)
	}

	a.quotaMu.Lock()
	a.quota = quota
	a.quotaMu.Unlock()

	if quota.Remaining == 0 {
		a.logger.Warn("Request quota exhausted", zap.Time("reset", quota.Reset))
	}

	return nil
}

// RateLimit returns the request quota reported by the last response.
func (a *Adapter) RateLimit() RateLimit {
	a.quotaMu.Lock()
	defer a.quotaMu.Unlock()

	return a.quota
}
