// Package scheduling fetches event and invitee resources from the scheduling provider.
package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the provider API root.
const DefaultBaseURL = "https://api.calendly.com"

// ErrUnauthorized is returned when the provider rejects the access token.
var ErrUnauthorized = errors.New("scheduling: access token rejected")

// URIError reports a resource URI outside the configured provider API.
// No request is made for such a URI.
type URIError struct {
	Field string
	URI   string
}

func (e *URIError) Error() string {
	return fmt.Sprintf("scheduling: %s %q is not a provider resource", e.Field, e.URI)
}

// Location describes where a scheduled event takes place.
type Location struct {
	Type    string `json:"type"`
	JoinURL string `json:"join_url"`
}

// Event is the subset of a scheduled event resource the intake flow reads.
// Timestamps are kept as sent so callers can report malformed values.
type Event struct {
	URI       string   `json:"uri"`
	Name      string   `json:"name"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	CreatedAt string   `json:"created_at"`
	Location  Location `json:"location"`
}

// QuestionAndAnswer is one answer the invitee gave on the booking form.
type QuestionAndAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Position int    `json:"position"`
}

// Invitee is the subset of an invitee resource the intake flow reads.
type Invitee struct {
	URI                 string              `json:"uri"`
	Email               string              `json:"email"`
	FirstName           string              `json:"first_name"`
	LastName            string              `json:"last_name"`
	Name                string              `json:"name"`
	QuestionsAndAnswers []QuestionAndAnswer `json:"questions_and_answers"`
}

// Provider is what the client service needs from the scheduling provider.
type Provider interface {
	FetchBooking(ctx context.Context, eventURI, inviteeURI string) (Event, Invitee, error)
}

// Client talks to the provider's REST API with a bearer token.
// The token is only ever sent to URIs under base.
type Client struct {
	httpClient  *http.Client
	base        *url.URL
	accessToken string
}

// NewClient creates a Client for the API rooted at baseURL whose requests give up after timeout.
func NewClient(baseURL, accessToken string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse scheduling base url: %w", err)
	}
	if (base.Scheme != "https" && base.Scheme != "http") || base.Host == "" {
		return nil, fmt.Errorf("scheduling base url %q must be an absolute http(s) url", baseURL)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		base:        base,
		accessToken: accessToken,
	}, nil
}

// CheckURI returns a *URIError when uri does not share the base URL's scheme and host.
func (c *Client) CheckURI(field, uri string) error {
	u, err := url.Parse(uri)
	if err != nil || u.User != nil || u.Scheme != c.base.Scheme || !strings.EqualFold(u.Host, c.base.Host) {
		return &URIError{Field: field, URI: uri}
	}
	return nil
}

// FetchEvent retrieves the event resource at uri.
func (c *Client) FetchEvent(ctx context.Context, uri string) (Event, error) {
	if err := c.CheckURI("eventUri", uri); err != nil {
		return Event{}, err
	}
	var body struct {
		Resource Event `json:"resource"`
	}
	if err := c.get(ctx, uri, &body); err != nil {
		return Event{}, fmt.Errorf("fetch event: %w", err)
	}
	return body.Resource, nil
}

// FetchInvitee retrieves the invitee resource at uri.
func (c *Client) FetchInvitee(ctx context.Context, uri string) (Invitee, error) {
	if err := c.CheckURI("inviteeUri", uri); err != nil {
		return Invitee{}, err
	}
	var body struct {
		Resource Invitee `json:"resource"`
	}
	if err := c.get(ctx, uri, &body); err != nil {
		return Invitee{}, fmt.Errorf("fetch invitee: %w", err)
	}
	return body.Resource, nil
}

// FetchBooking retrieves the event and the invitee concurrently. Both must succeed.
// Both URIs are checked before either request starts.
func (c *Client) FetchBooking(ctx context.Context, eventURI, inviteeURI string) (Event, Invitee, error) {
	if err := c.CheckURI("eventUri", eventURI); err != nil {
		return Event{}, Invitee{}, err
	}
	if err := c.CheckURI("inviteeUri", inviteeURI); err != nil {
		return Event{}, Invitee{}, err
	}
	var (
		event   Event
		invitee Invitee
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		event, err = c.FetchEvent(gctx, eventURI)
		return err
	})
	g.Go(func() error {
		var err error
		invitee, err = c.FetchInvitee(gctx, inviteeURI)
		return err
	})
	if err := g.Wait(); err != nil {
		return Event{}, Invitee{}, err
	}
	return event, invitee, nil
}

func (c *Client) get(ctx context.Context, uri string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: unexpected status %d: %s", uri, resp.StatusCode, snippet)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
