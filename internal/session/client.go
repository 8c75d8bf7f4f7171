package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/dto"
	"zeroforums/internal/reqsig"
)

func decodeSecret(s string) ([]byte, error) {
	return cryptoutil.B64Fixed(s, 32)
}

// Client speaks the signed-request protocol against a zeroforums server.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Fingerprint string
}

func NewClient(baseURL, fingerprint string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		Fingerprint: fingerprint,
	}
}

func (c *Client) FetchCaptcha(ctx context.Context) (dto.CaptchaResponse, error) {
	var out dto.CaptchaResponse
	err := c.do(ctx, http.MethodGet, "/v1/captcha", nil, &out, c.anonymousSigner())
	return out, err
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (dto.SessionResponse, error) {
	var out dto.SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", req, &out, c.anonymousSigner())
	return out, err
}

func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (dto.SessionResponse, error) {
	var out dto.SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", req, &out, c.anonymousSigner())
	return out, err
}

func (c *Client) Logout(ctx context.Context, rec *Record) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, c.sessionSigner(rec))
}

func (c *Client) Wipe(ctx context.Context, rec *Record, confirmation string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/wipe", dto.WipeRequest{Confirmation: confirmation}, nil, c.sessionSigner(rec))
}

func (c *Client) anonymousSigner() *reqsig.Signer {
	return &reqsig.Signer{Secret: reqsig.AnonymousSecret(), Fingerprint: c.Fingerprint}
}

func (c *Client) sessionSigner(rec *Record) *reqsig.Signer {
	secret, err := decodeSecret(rec.RequestSecret)
	if err != nil {
		secret = reqsig.AnonymousSecret()
	}
	return &reqsig.Signer{
		Secret:       secret,
		SessionToken: rec.Token,
		Fingerprint:  c.Fingerprint,
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, signer *reqsig.Signer) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	headers, err := signer.Headers(method, path, body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// ServerError carries a non-2xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
