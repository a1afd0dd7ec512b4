// Package revindex talks to the external reverse-image index that supports
// similarity lookups. Registration is best effort: post saves never fail on
// index errors.
package revindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type addRequest struct {
	PostID int64  `json:"post_id"`
	MD5    string `json:"md5"`
}

// Add registers a post's image under its md5.
func (c *Client) Add(ctx context.Context, postID int64, md5 string) error {
	body, err := json.Marshal(addRequest{PostID: postID, MD5: md5})
	if err != nil {
		return fmt.Errorf("encode add request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build add request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("add image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("add image: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Remove deregisters a post's image.
func (c *Client) Remove(ctx context.Context, postID int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/images/%d", c.baseURL, postID), nil)
	if err != nil {
		return fmt.Errorf("build remove request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remove image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove image: unexpected status %d", resp.StatusCode)
	}
	return nil
}
