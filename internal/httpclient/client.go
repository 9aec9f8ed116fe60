package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/metrics"
)

const sinkName = "webhook"

var client = &http.Client{
	Timeout: 60 * time.Second,
}

// Webhook posts change messages as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	c := client
	if timeout > 0 {
		c = &http.Client{Timeout: timeout}
	}
	return &Webhook{url: url, client: c}
}

func (w *Webhook) Notify(ctx context.Context, msg dto.ChangeMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	statusCode, response, err := PostJSON(ctx, w.client, w.url, payload)
	if err == nil && (statusCode < 200 || statusCode > 299) {
		err = fmt.Errorf("webhook returned %d: %s", statusCode, response.Message)
	}
	metrics.RecordNotification(sinkName, err)
	return err
}

// PostJSON sends body and decodes an optional APIResponse from the reply.
func PostJSON(ctx context.Context, c *http.Client, url string, body []byte) (int, dto.APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return 0, dto.APIResponse{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return 0, dto.APIResponse{}, err
	}
	defer resp.Body.Close()

	var result dto.APIResponse
	if resp.ContentLength != 0 {
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, dto.APIResponse{}, errors.New("failed to decode response body")
		}
	}

	return resp.StatusCode, result, nil
}
