// Package api is the REST collaborator of the chat core: a thin resty
// client for the Courtline backend. It decodes message payloads into raw
// maps so the chat normalizer owns all shape tolerance.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is a genuine backend rejection (4xx/5xx). Transport failures are
// returned as wrapped errors, not APIErrors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// Room is a chat conversation scope: either tied to a match or a direct
// conversation.
type Room struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	HostID      string    `json:"host_id"`
	MatchID     string    `json:"match_id,omitempty"`
	UnreadCount int       `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the authenticated viewer's account.
type Profile struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Client struct {
	r *resty.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	return &Client{r: r}
}

// do runs a prepared request and maps non-2xx responses to *APIError.
func do(req *resty.Request, method, url string) (*resty.Response, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, url, err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(resp.Body(), &body) == nil {
			apiErr.Message = body.Message
			if apiErr.Message == "" {
				apiErr.Message = body.Error
			}
		}
		return nil, apiErr
	}
	return resp, nil
}

// Profile fetches the authenticated viewer's account.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	resp, err := do(c.r.R().SetContext(ctx), resty.MethodGet, "/api/profile")
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, fmt.Errorf("api: decoding profile: %w", err)
	}
	return &p, nil
}

// Rooms lists the rooms the viewer participates in.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	resp, err := do(c.r.R().SetContext(ctx), resty.MethodGet, "/api/rooms")
	if err != nil {
		return nil, err
	}
	var rooms []Room
	if err := json.Unmarshal(resp.Body(), &rooms); err == nil {
		return rooms, nil
	}
	// Some deployments wrap the list.
	var wrapped struct {
		Rooms []Room `json:"rooms"`
	}
	if err := json.Unmarshal(resp.Body(), &wrapped); err != nil {
		return nil, fmt.Errorf("api: decoding rooms: %w", err)
	}
	return wrapped.Rooms, nil
}

// RoomMessages fetches a page of message history for a room, newest-last.
// before is an optional message id cursor for paging backwards.
func (c *Client) RoomMessages(ctx context.Context, roomID string, limit int, before string) ([]map[string]any, error) {
	req := c.r.R().SetContext(ctx)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if before != "" {
		req.SetQueryParam("before", before)
	}
	resp, err := do(req, resty.MethodGet, "/api/rooms/"+roomID+"/messages")
	if err != nil {
		return nil, err
	}
	return decodeMessages(resp.Body())
}

// SendMessage posts a message and returns the backend's representation of
// it, which the caller merges into the store.
func (c *Client) SendMessage(ctx context.Context, roomID, content, kind string) (map[string]any, error) {
	req := c.r.R().SetContext(ctx).SetBody(map[string]string{
		"content":      content,
		"message_type": kind,
	})
	resp, err := do(req, resty.MethodPost, "/api/rooms/"+roomID+"/messages")
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		// A body-less 2xx is fine; the realtime echo will deliver it.
		return nil, nil
	}
	if inner, ok := raw["message"].(map[string]any); ok {
		return inner, nil
	}
	return raw, nil
}

// MarkRead acknowledges a message as read by the viewer.
func (c *Client) MarkRead(ctx context.Context, roomID, messageID string) error {
	req := c.r.R().SetContext(ctx).SetBody(map[string]string{"message_id": messageID})
	_, err := do(req, resty.MethodPost, "/api/rooms/"+roomID+"/read")
	return err
}

// ApproveParticipant performs the authoritative approval call. The control
// message in chat is advisory; this is the effect.
func (c *Client) ApproveParticipant(ctx context.Context, roomID, participantID string) error {
	req := c.r.R().SetContext(ctx).SetBody(map[string]string{"participant_id": participantID})
	_, err := do(req, resty.MethodPost, "/api/rooms/"+roomID+"/approve")
	return err
}

// decodeMessages accepts either a bare array or a wrapped {"messages": [...]}.
func decodeMessages(body []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("api: decoding messages: %w", err)
	}
	return wrapped.Messages, nil
}
