package dnsimple

import (
	"context"
	"net/http"
)

// Account represents a DNSimple account
type Account struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	PlanIdentifier string `json:"plan_identifier,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// User represents a DNSimple user
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// WhoamiData describes the identity behind the token. Account tokens set
// Account, user tokens set User.
type WhoamiData struct {
	Account *Account `json:"account"`
	User    *User    `json:"user"`
}

// WhoamiResponse is the response of the whoami endpoint.
type WhoamiResponse = Response[WhoamiData]

// Whoami returns the account or user the token belongs to.
func (c *Client) Whoami(ctx context.Context) (*WhoamiResponse, error) {
	return do[WhoamiData](ctx, c, newRequest(http.MethodGet, versioned("/whoami"), nil, nil))
}
