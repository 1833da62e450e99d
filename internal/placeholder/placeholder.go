// Package placeholder downloads the default user list served by a remote JSON API
// (jsonplaceholder.typicode.com/users unless configured otherwise).
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/userlist/internal/models"
)

// ErrUnexpectedStatus is returned when the remote source answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("the default user list source answered with an error status")

// Client fetches the default collection.
type Client struct {
	client *resty.Client
	url    string
}

// New returns a Client for url; every request is bounded by timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		url: url,
	}
}

// FetchUsers downloads and decodes the default collection.
// Failures are not retried.
func (c *Client) FetchUsers(ctx context.Context) (models.Users, error) {
	users := models.Users{}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&users).
		ForceContentType("application/json").
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("in internal/placeholder/placeholder.go/FetchUsers(): error while `Get()` calling: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status())
	}

	return users, nil
}
