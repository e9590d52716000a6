package auth

import (
	"errors"
	"strings"
)

var ErrSignInDenied = errors.New("sign-in not allowed for this identity")

// SignInPolicy decides which external identities may obtain a session at all.
// It runs once when a token is issued; requests carrying a valid token are not re-checked.
// An empty policy allows everyone.
type SignInPolicy struct {
	AllowedEmails  []string
	AllowedDomains []string
}

func (p SignInPolicy) Allow(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	if len(p.AllowedEmails) == 0 && len(p.AllowedDomains) == 0 {
		return true
	}

	for _, allowed := range p.AllowedEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), email) {
			return true
		}
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, allowed := range p.AllowedDomains {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(allowed), "@"), domain) {
			return true
		}
	}
	return false
}

// IssueToken applies the policy and signs a session token for email.
func (p SignInPolicy) IssueToken(email string, secretKey []byte) (string, error) {
	if !p.Allow(email) {
		return "", ErrSignInDenied
	}
	return GenerateJWT(strings.TrimSpace(email), secretKey, DefaultTokenTTL)
}
