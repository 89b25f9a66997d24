package models

import (
	"strings"

	"smsglue/internal/util"
)

// AccountCredentials is the voip.ms login carried inside a token.
type AccountCredentials struct {
	Username string `json:"user"`
	Password string `json:"pass"`
	DID      string `json:"did"`
}

// Normalize trims the login fields and reduces the DID to its digits.
func (c AccountCredentials) Normalize() AccountCredentials {
	return AccountCredentials{
		Username: strings.TrimSpace(c.Username),
		Password: strings.TrimSpace(c.Password),
		DID:      util.DigitsOnly(c.DID),
	}
}

// Valid checks the normalized credentials: an email-like username, a password
// of at least 8 characters and a 10-digit DID.
func (c AccountCredentials) Valid() bool {
	n := c.Normalize()
	return strings.Contains(n.Username, "@") &&
		len(n.Password) >= 8 &&
		len(n.DID) == 10
}

// Account is a decoded token together with its derived identifier.
type Account struct {
	Token       string
	ID          string
	Credentials AccountCredentials
}

// Valid re-checks the credentials; a zero Account is never valid.
func (a Account) Valid() bool {
	return a.ID != "" && a.Credentials.Valid()
}
