// Package client is a small HTTP client for the quill API, for sibling
// services (posting tier, moderation tools) that talk to a quill node.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/quillsocial/quill"
)

const defaultTimeout = 3 * time.Second

// viewerHeader mirrors the header the node's viewer middleware reads.
const viewerHeader = "x-quill-profile-id"

// Notice is the wire form of a timeline entry.
type Notice struct {
	ID             int64     `json:"id"`
	ProfileID      int64     `json:"profileID"`
	Content        string    `json:"content"`
	Verb           string    `json:"verb"`
	ConversationID int64     `json:"conversationID"`
	RepeatOf       *int64    `json:"repeatOf,omitempty"`
	Scope          int       `json:"scope"`
	IsLocal        int       `json:"isLocal"`
	Created        time.Time `json:"created"`
}

// Page selects a timeline window. Zero values are omitted from the query.
type Page struct {
	Offset  int
	Limit   int
	SinceID int64
	MaxID   int64
}

func (p Page) encode() string {
	values := url.Values{}
	if p.Offset != 0 {
		values.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Limit != 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SinceID != 0 {
		values.Set("since_id", strconv.FormatInt(p.SinceID, 10))
	}
	if p.MaxID != 0 {
		values.Set("max_id", strconv.FormatInt(p.MaxID, 10))
	}
	if encoded := values.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}

// Client talks to one quill node. Instance metadata is cached in-process;
// timeline reads always go to the wire.
type Client struct {
	client    *http.Client
	cache     *gocache.Cache
	baseURL   string
	userAgent string

	// ViewerID, when nonzero, is sent on every request so the node resolves
	// the timelines as that profile. Authentication happens at the fronting
	// proxy, not here.
	ViewerID int64
}

func New(baseURL string) *Client {
	c := &Client{
		client:    &http.Client{Timeout: defaultTimeout},
		cache:     gocache.New(10*time.Minute, 15*time.Minute),
		baseURL:   baseURL,
		userAgent: "quill-client/1.0",
	}
	c.client.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.ViewerID != 0 {
		req.Header.Set(viewerHeader, strconv.FormatInt(c.ViewerID, 10))
	}
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) get(ctx context.Context, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "client: build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "client: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "client: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return errors.Wrap(json.Unmarshal(body, response), "client: decode response")
}

func (c *Client) post(ctx context.Context, path string, payload, response any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "client: encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "client: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "client: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "client: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if response == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, response), "client: decode response")
}

// Instance describes the node the client is pointed at.
type Instance struct {
	FQDN         string `json:"fqdn"`
	Name         string `json:"name"`
	Registration string `json:"registration"`
}

// GetInstance returns node metadata, cached for 10 minutes.
func (c *Client) GetInstance(ctx context.Context) (Instance, error) {
	if cached, found := c.cache.Get("instance"); found {
		return cached.(Instance), nil
	}

	var instance Instance
	if err := c.get(ctx, "/api/v1/instance", &instance); err != nil {
		return Instance{}, err
	}
	c.cache.Set("instance", instance, gocache.DefaultExpiration)
	return instance, nil
}

func (c *Client) GetHomeTimeline(ctx context.Context, p Page) ([]Notice, error) {
	var notices []Notice
	err := c.get(ctx, "/api/v1/timeline/home"+p.encode(), &notices)
	return notices, err
}

func (c *Client) GetPublicTimeline(ctx context.Context, p Page) ([]Notice, error) {
	var notices []Notice
	err := c.get(ctx, "/api/v1/timeline/public"+p.encode(), &notices)
	return notices, err
}

func (c *Client) GetGroupTimeline(ctx context.Context, groupID int64, p Page) ([]Notice, error) {
	var notices []Notice
	path := fmt.Sprintf("/api/v1/groups/%d/timeline", groupID)
	err := c.get(ctx, path+p.encode(), &notices)
	return notices, err
}

func (c *Client) GetConversation(ctx context.Context, conversationID int64, p Page) ([]Notice, error) {
	var notices []Notice
	path := fmt.Sprintf("/api/v1/conversations/%d", conversationID)
	err := c.get(ctx, path+p.encode(), &notices)
	return notices, err
}

// PublishEvent queues a notice event for realtime fan-out and returns the
// queue item id.
func (c *Client) PublishEvent(ctx context.Context, event quill.NoticeEvent) (int64, error) {
	var response struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, "/api/v1/events", event, &response); err != nil {
		return 0, err
	}
	return response.ID, nil
}
