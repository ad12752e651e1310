package google

import (
	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/social"
)

// tokenInfo is the oauth2/v1/tokeninfo response
type tokenInfo struct {
	IssuedTo      string `json:"issued_to"`
	Audience      string `json:"audience"`
	UserID        string `json:"user_id"`
	Scope         string `json:"scope"`
	ExpiresIn     int    `json:"expires_in"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	AccessType    string `json:"access_type"`
	Error         string `json:"error"`
	ErrorDesc     string `json:"error_description"`
}

// audience prefers the audience field, older responses only carry issued_to
func (t *tokenInfo) audience() string {
	if t.Audience != "" {
		return t.Audience
	}
	return t.IssuedTo
}

func mapProfile(info *tokenInfo) *social.Profile {
	if info == nil {
		return nil
	}

	return &social.Profile{
		Email:          info.Email,
		Provider:       auth.ProviderGoogle,
		ProviderUserID: info.UserID,
		Attributes: map[string]any{
			"email":          info.Email,
			"user_id":        info.UserID,
			"verified_email": info.VerifiedEmail,
			"expires_in":     info.ExpiresIn,
			"scope":          info.Scope,
		},
	}
}
