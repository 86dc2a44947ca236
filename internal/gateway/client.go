package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.mediaforge.dev"

// Client talks to the remote media gateway over HTTP JSON: synchronous
// image generation, create-then-poll video generation, and plain binary
// fetches. Every non-2xx response passes through Classify exactly once,
// so callers only ever see classified *Error values.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Log        *logrus.Logger

	ImageModel string
	VideoModel string
	ChatModel  string

	PollInterval time.Duration
	PollDeadline time.Duration
}

// NewClient builds a client from config values; the API key comes from
// the MEDIA_GATEWAY_API_KEY environment variable.
func NewClient(baseURL string, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:      baseURL,
		APIKey:       os.Getenv("MEDIA_GATEWAY_API_KEY"),
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		Log:          log,
		PollInterval: 3 * time.Second,
		PollDeadline: 4 * time.Minute,
	}
}

func sizeForAspect(a Aspect) string {
	if a == AspectLandscape {
		return "1280x720"
	}
	return "720x1280"
}

// GenerateImage implements MediaGateway.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	body := map[string]any{
		"model":  c.ImageModel,
		"prompt": prompt,
		"size":   sizeForAspect(opts.Aspect),
	}
	if opts.Style != "" {
		body["style"] = opts.Style
	}

	var resp struct {
		Data []struct {
			URL string `json:"url"`
			B64 string `json:"b64_json"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/v1/images/generations", body, &resp); err != nil {
		return "", err
	}
	for _, d := range resp.Data {
		if d.URL != "" {
			return d.URL, nil
		}
		if d.B64 != "" {
			return "data:image/png;base64," + d.B64, nil
		}
	}
	return "", &Error{Kind: KindOther, Message: "no image in response"}
}

// GenerateVideo implements MediaGateway: it creates a generation task for
// the image + prompt, then polls until the task reaches a terminal state
// or the poll deadline expires.
func (c *Client) GenerateVideo(ctx context.Context, imageRef, prompt string, opts GenOptions) (string, error) {
	body := map[string]any{
		"model":        c.VideoModel,
		"prompt":       prompt,
		"image_url":    imageRef,
		"aspect_ratio": string(opts.Aspect),
	}
	if opts.Style != "" {
		body["style"] = opts.Style
	}

	var created struct {
		TaskID string `json:"task_id"`
		ID     string `json:"id"`
	}
	if err := c.postJSON(ctx, "/v1/videos/generations", body, &created); err != nil {
		return "", err
	}
	taskID := created.TaskID
	if taskID == "" {
		taskID = created.ID
	}
	if taskID == "" {
		return "", &Error{Kind: KindOther, Message: "no task id in response"}
	}

	deadline := time.Now().Add(c.PollDeadline)
	for time.Now().Before(deadline) {
		status, url, err := c.getVideoTask(ctx, taskID)
		if err != nil {
			return "", err
		}
		switch status {
		case "succeeded", "completed", "success":
			if url == "" {
				return "", &Error{Kind: KindOther, Message: "task succeeded but url empty"}
			}
			return url, nil
		case "failed", "error":
			return "", &Error{Kind: KindOther, Message: "video generation task failed"}
		}
		select {
		case <-time.After(c.PollInterval):
		case <-ctx.Done():
			return "", transportError(ctx.Err())
		}
	}
	return "", &Error{Kind: KindOther, Message: "video generation timed out"}
}

func (c *Client) getVideoTask(ctx context.Context, taskID string) (status, url string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/v1/videos/generations/"+taskID, nil)
	if err != nil {
		return "", "", transportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", "", transportError(err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", "", transportError(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", "", Classify(res.StatusCode, string(data))
	}

	var resp struct {
		Status string `json:"status"`
		Output struct {
			VideoURL string `json:"video_url"`
		} `json:"output"`
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "", &Error{Kind: KindOther, Message: "bad task response: " + err.Error()}
	}
	url = resp.VideoURL
	if url == "" {
		url = resp.Output.VideoURL
	}
	return resp.Status, url, nil
}

// FetchBinary implements MediaGateway.
func (c *Client) FetchBinary(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, transportError(err)
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, Classify(res.StatusCode, string(body))
	}
	return io.ReadAll(res.Body)
}

// ChatJSON sends a chat-completion prompt and unmarshals the model's
// reply into out. Used by the chunk source.
func (c *Client) ChatJSON(ctx context.Context, prompt string, out any) error {
	body := map[string]any{
		"model":    c.ChatModel,
		"messages": []map[string]any{{"role": "user", "content": prompt}},
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "/v1/chat/completions", body, &resp); err != nil {
		return err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return &Error{Kind: KindOther, Message: "empty chat content"}
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("parsing chat JSON: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return transportError(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		gerr := Classify(res.StatusCode, string(data))
		if c.Log != nil {
			c.Log.WithFields(logrus.Fields{
				"path":   path,
				"status": res.StatusCode,
				"kind":   gerr.Kind.String(),
			}).Warn("Gateway call failed")
		}
		return gerr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindOther, Message: "bad response body: " + err.Error()}
	}
	return nil
}

// IsGatewayError reports whether err carries a classified gateway error,
// returning it when so.
func IsGatewayError(err error) (*Error, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}
