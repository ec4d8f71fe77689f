package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindDomain
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDomain:
		return "domain"
	case KindParse:
		return "parse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is returned for every failed call. Transport errors are
// recoverable, domain and parse errors are not worth retrying.
type APIError struct {
	Kind    ErrorKind
	Path    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error calling [%s]: %s: %v", e.Kind, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error calling [%s]: %s", e.Kind, e.Path, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

func IsDomain(err error) bool {
	return hasKind(err, KindDomain) || hasKind(err, KindParse)
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

type Client struct {
	baseUrl    string
	httpClient *http.Client
}

func NewClient(baseUrl string, timeout time.Duration) *Client {
	return &Client{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   10,
				ResponseHeaderTimeout: timeout,
			},
		},
	}
}

// Request performs a GET and checks the response envelope. The returned
// payload is the complete response object.
func (c *Client) Request(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := c.baseUrl + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Path: path, Message: "creating request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Path: path, Message: "sending request", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Path: path, Message: "reading response body", Err: err}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		if err == nil {
			err = errors.New("response is not an object")
		}
		return nil, &APIError{Kind: KindTransport, Path: path, Message: fmt.Sprintf("malformed response body (status %d)", res.StatusCode), Err: err}
	}

	if message, failed := envelopeError(envelope); failed {
		apiErr := &APIError{Kind: KindDomain, Path: path, Message: message}
		if message == "not_found" {
			apiErr.Err = entities.ErrNotFound
		}
		return nil, apiErr
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Kind: KindTransport, Path: path, Message: fmt.Sprintf("unexpected status %d", res.StatusCode)}
	}
	return body, nil
}

// envelopeError treats an absent, empty or ok (plain or namespaced) error field as success.
func envelopeError(envelope map[string]json.RawMessage) (string, bool) {
	raw, ok := envelope["error"]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var message string
	if err := json.Unmarshal(raw, &message); err != nil {
		return string(raw), true
	}
	switch message {
	case "", "ok", ":ok":
		return "", false
	default:
		return message, true
	}
}

func decodePayload(path string, payload json.RawMessage, target any) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return &APIError{Kind: KindParse, Path: path, Message: "decoding payload", Err: err}
	}
	return nil
}

func missingField(path, field string) error {
	return &APIError{Kind: KindParse, Path: path, Message: fmt.Sprintf("missing field [%s]", field)}
}
