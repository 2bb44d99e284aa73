package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
)

var (
	ErrProviderNotConfigured = errors.New("social provider is not configured")
	ErrSocialRejected        = errors.New("social credential rejected")
)

// SocialIdentity is the verified account returned by a provider. EmailVerified is true only when
// the provider vouches for Email.
type SocialIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Nickname      string
}

type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type GoogleVerifier struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
	Validate     IDTokenValidator
}

func NewGoogleVerifier(clientID, clientSecret, redirectURI string) *GoogleVerifier {
	if redirectURI == "" {
		redirectURI = "postmessage"
	}
	return &GoogleVerifier{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Endpoint:     google.Endpoint,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		Validate:     idtoken.Validate,
	}
}

// Verify accepts either a Google ID token or, when isCode is set, an authorization code that is
// first exchanged for tokens.
func (g *GoogleVerifier) Verify(ctx context.Context, credential string, isCode bool) (SocialIdentity, error) {
	if g == nil || g.ClientID == "" {
		return SocialIdentity{}, ErrProviderNotConfigured
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return SocialIdentity{}, fmt.Errorf("%w: empty credential", ErrSocialRejected)
	}

	rawIDToken := credential
	if isCode {
		if g.ClientSecret == "" {
			return SocialIdentity{}, ErrProviderNotConfigured
		}
		conf := &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURI,
			Endpoint:     g.Endpoint,
		}
		token, err := conf.Exchange(withHTTPClient(ctx, g.HTTPClient), credential)
		if err != nil {
			return SocialIdentity{}, fmt.Errorf("%w: google code exchange: %v", ErrSocialRejected, err)
		}
		idTokenValue, _ := token.Extra("id_token").(string)
		if idTokenValue == "" {
			return SocialIdentity{}, fmt.Errorf("%w: google did not return an id_token", ErrSocialRejected)
		}
		rawIDToken = idTokenValue
	}

	validate := g.Validate
	if validate == nil {
		validate = idtoken.Validate
	}
	payload, err := validate(ctx, rawIDToken, g.ClientID)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("%w: google id token: %v", ErrSocialRejected, err)
	}
	if payload.Subject == "" {
		return SocialIdentity{}, fmt.Errorf("%w: google id token has no subject", ErrSocialRejected)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	return SocialIdentity{
		Provider:      ProviderGoogle,
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: email != "" && claimTrue(payload.Claims["email_verified"]),
		Nickname:      name,
	}, nil
}

// claimTrue reads a boolean claim that some issuers encode as a string.
func claimTrue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

const (
	KakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	KakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

type KakaoClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	ProfileURL   string
	HTTPClient   *http.Client
}

func NewKakaoClient(clientID, clientSecret, redirectURI string) *KakaoClient {
	return &KakaoClient{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		TokenURL:     KakaoTokenURL,
		ProfileURL:   KakaoProfileURL,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

type kakaoProfile struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email           string `json:"email"`
		IsEmailValid    *bool  `json:"is_email_valid"`
		IsEmailVerified bool   `json:"is_email_verified"`
		Profile         struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
}

// Verify exchanges an authorization code and loads the Kakao profile behind it.
func (k *KakaoClient) Verify(ctx context.Context, code string) (SocialIdentity, error) {
	if k == nil || k.ClientID == "" || k.RedirectURI == "" {
		return SocialIdentity{}, ErrProviderNotConfigured
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return SocialIdentity{}, fmt.Errorf("%w: empty code", ErrSocialRejected)
	}

	conf := &oauth2.Config{
		ClientID:     k.ClientID,
		ClientSecret: k.ClientSecret,
		RedirectURL:  k.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  k.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = withHTTPClient(ctx, k.HTTPClient)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("%w: kakao token exchange: %v", ErrSocialRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.ProfileURL, nil)
	if err != nil {
		return SocialIdentity{}, err
	}
	token.SetAuthHeader(req)

	client := k.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("kakao profile request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SocialIdentity{}, fmt.Errorf("read kakao profile: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return SocialIdentity{}, fmt.Errorf("%w: kakao profile status %d", ErrSocialRejected, resp.StatusCode)
	}

	var profile kakaoProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return SocialIdentity{}, fmt.Errorf("decode kakao profile: %w", err)
	}
	if profile.ID == 0 {
		return SocialIdentity{}, fmt.Errorf("%w: kakao profile has no id", ErrSocialRejected)
	}

	subject := strconv.FormatInt(profile.ID, 10)
	email := strings.TrimSpace(profile.KakaoAccount.Email)
	verified := email != "" && profile.KakaoAccount.IsEmailVerified
	if valid := profile.KakaoAccount.IsEmailValid; valid != nil && !*valid {
		verified = false
	}
	if email == "" {
		email = "kakao_" + subject + "@kakao.local"
	}
	nickname := profile.KakaoAccount.Profile.Nickname
	if nickname == "" {
		nickname = profile.Properties.Nickname
	}
	return SocialIdentity{
		Provider:      ProviderKakao,
		Subject:       subject,
		Email:         email,
		EmailVerified: verified,
		Nickname:      nickname,
	}, nil
}

func withHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}
