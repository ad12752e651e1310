package kakao

import (
	"strconv"

	"github.com/goliatone/go-fedauth"
	"github.com/goliatone/go-fedauth/social"
)

type kakaoUser struct {
	ID           int64        `json:"id"`
	KakaoAccount kakaoAccount `json:"kakao_account"`

	// set on error bodies
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

type kakaoAccount struct {
	Email           string `json:"email"`
	HasEmail        bool   `json:"has_email"`
	IsEmailValid    bool   `json:"is_email_valid"`
	IsEmailVerified bool   `json:"is_email_verified"`
	AgeRange        string `json:"age_range"`
	Gender          string `json:"gender"`
}

func mapProfile(user *kakaoUser) *social.Profile {
	if user == nil {
		return nil
	}

	attrs := map[string]any{
		"email": user.KakaoAccount.Email,
	}
	if user.KakaoAccount.AgeRange != "" {
		attrs["age_range"] = user.KakaoAccount.AgeRange
	}
	if user.KakaoAccount.Gender != "" {
		attrs["gender"] = user.KakaoAccount.Gender
	}

	subject := ""
	if user.ID != 0 {
		subject = strconv.FormatInt(user.ID, 10)
	}

	return &social.Profile{
		Email:          user.KakaoAccount.Email,
		Provider:       auth.ProviderKakao,
		ProviderUserID: subject,
		Attributes:     attrs,
	}
}
