package pinning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrMissingHash is returned when the pinning service answers without a content identifier.
var ErrMissingHash = errors.New("pinning response has no IpfsHash")

// StatusError reports a non-2xx answer from the pinning service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pinning service returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client uploads files to an IPFS pinning endpoint.
type Client struct {
	endpoint string
	jwt      string
	http     *http.Client
}

// New builds a client for endpoint authenticated with a bearer JWT.
func New(endpoint, jwt string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{endpoint: endpoint, jwt: jwt, http: &http.Client{Timeout: timeout}}
}

// Pin streams r as a multipart "file" part and returns the content identifier and pinned size.
func (c *Client) Pin(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)

	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = form.Close()
		}
		writer.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		_ = body.CloseWithError(err)
		return "", 0, fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("pin request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read pin response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	hash := gjson.GetBytes(payload, "IpfsHash").String()
	if hash == "" {
		return "", 0, ErrMissingHash
	}
	return hash, gjson.GetBytes(payload, "PinSize").Int(), nil
}
