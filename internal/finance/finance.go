// Package finance shapes the finance API's endpoints into typed calls. It does
// no validation and no retries; errors are the API client's, untouched.
package finance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fintrack/internal/apiclient"
	"fintrack/internal/core"
)

// Sender is the subset of *apiclient.Client the bindings use.
type Sender interface {
	Send(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the account record returned by /auth/register and /auth/me.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt core.Date `json:"created_at"`
}

// ListParams filters GET /transactions/. Zero values are left off the query
// so the server defaults apply.
type ListParams struct {
	Skip  int
	Limit int
	Type  core.TransactionType
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Type != "" {
		q.Set("type", string(p.Type))
	}
	return q
}

type Client struct {
	api Sender
}

func New(api Sender) *Client {
	return &Client{api: api}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := c.api.Send(ctx, apiclient.Request{Method: http.MethodPost, Path: "/auth/register", Body: req})
	if err != nil {
		return nil, err
	}
	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.api.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	})
	if err != nil {
		return "", err
	}
	var tok tokenResponse
	if err := resp.Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login response missing access_token")
	}
	return tok.AccessToken, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/auth/me"})
	if err != nil {
		return nil, err
	}
	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListTransactions(ctx context.Context, p ListParams) ([]core.Transaction, error) {
	resp, err := c.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/transactions/", Query: p.query()})
	if err != nil {
		return nil, err
	}
	var txs []core.Transaction
	if err := resp.Decode(&txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) CreateTransaction(ctx context.Context, tc core.TransactionCreate) (*core.Transaction, error) {
	resp, err := c.api.Send(ctx, apiclient.Request{Method: http.MethodPost, Path: "/transactions/", Body: tc})
	if err != nil {
		return nil, err
	}
	var tx core.Transaction
	if err := resp.Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := c.api.Send(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/transactions/" + strconv.FormatInt(id, 10),
	})
	return err
}

func (c *Client) MonthlySummary(ctx context.Context, year int, month time.Month) (*core.MonthlySummary, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(int(month)))

	resp, err := c.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/summary/monthly", Query: q})
	if err != nil {
		return nil, err
	}
	var s core.MonthlySummary
	if err := resp.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
