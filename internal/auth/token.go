package auth

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/justestif/daily-song/internal/db"
)

// Token is the OAuth credential kept in the session.
type Token struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    time.Duration `json:"expires_in"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	Scopes       []string      `json:"scopes,omitempty"`
}

// Expired reports whether ExpiresAt is at or before now. Tokens without an
// absolute expiry never expire.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// OAuth2 converts t for use with an oauth2 transport.
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresAt != nil {
		tok.Expiry = *t.ExpiresAt
	}
	return tok
}

// String never includes credentials.
func (t *Token) String() string {
	return "auth.Token{type=" + t.TokenType + ", access=[redacted]}"
}

func (t *Token) GoString() string {
	return t.String()
}

// MarshalZerologObject logs only non-secret fields.
func (t *Token) MarshalZerologObject(e *zerolog.Event) {
	e.Str("token_type", t.TokenType).
		Dur("expires_in", t.ExpiresIn).
		Bool("has_refresh_token", t.RefreshToken != "").
		Strs("scopes", t.Scopes)
	if t.ExpiresAt != nil {
		e.Time("expires_at", *t.ExpiresAt)
	}
}

// FromOAuth2 builds a Token from a token endpoint response.
func FromOAuth2(tok *oauth2.Token, now time.Time) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	if tok.ExpiresIn > 0 {
		t.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		t.ExpiresAt = &exp
		if t.ExpiresIn == 0 {
			t.ExpiresIn = exp.Sub(now).Round(time.Second)
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scopes = strings.Fields(scope)
	}
	return t
}

// userRow copies the token fields onto a user record.
func (t *Token) userRow(id int64) *db.User {
	user := &db.User{
		ID:          id,
		AccessToken: t.AccessToken,
		ExpiresIn:   int(t.ExpiresIn / time.Second),
		ExpiresAt:   t.ExpiresAt,
	}
	if t.RefreshToken != "" {
		rt := t.RefreshToken
		user.RefreshToken = &rt
	}
	return user
}
