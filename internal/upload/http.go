//go:build !no_http

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prasisiri/pycode-cronjob/internal/config"
)

const (
	defaultHTTPMethod  = http.MethodPost
	defaultHTTPTimeout = 30 * time.Second

	// Response bodies are quoted in failure messages up to this size
	maxResponseBody = 64 << 10
)

// HTTPSettings is the validated [http] section
type HTTPSettings struct {
	URL      *url.URL
	Method   string
	Username string
	Password string
	Token    string
	Timeout  time.Duration
}

func parseHTTPSettings(section config.Section) (HTTPSettings, error) {
	rawURL, err := section.String("url")
	if err != nil {
		return HTTPSettings{}, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return HTTPSettings{}, fmt.Errorf("http: invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return HTTPSettings{}, fmt.Errorf("http: invalid url %q: must be an absolute http or https URL", u.Redacted())
	}

	method := strings.ToUpper(section.StringOr("method", defaultHTTPMethod))
	if method != http.MethodPost && method != http.MethodPut {
		return HTTPSettings{}, fmt.Errorf("http: unsupported HTTP method: %s", section.StringOr("method", ""))
	}

	username, hasUser := section.Lookup("username")
	password, hasPass := section.Lookup("password")
	if hasUser != hasPass {
		return HTTPSettings{}, fmt.Errorf("http: username and password must be set together")
	}

	timeout, err := section.Duration("timeout", defaultHTTPTimeout)
	if err != nil {
		return HTTPSettings{}, err
	}

	return HTTPSettings{
		URL:      u,
		Method:   method,
		Username: username,
		Password: password,
		Token:    section.StringOr("token", ""),
		Timeout:  timeout,
	}, nil
}

// HTTPTransport uploads a file as a multipart form to an HTTP endpoint
type HTTPTransport struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// NewHTTPTransport creates a new HTTPTransport.
// A nil client means one is built per upload with the configured timeout.
func NewHTTPTransport(logger *slog.Logger, client *http.Client) *HTTPTransport {
	return &HTTPTransport{logger: logger, httpClient: client}
}

// Kind returns the transport kind
func (t *HTTPTransport) Kind() Kind {
	return KindHTTP
}

// Inspect validates the [http] section
func (t *HTTPTransport) Inspect(section config.Section) (map[string]string, error) {
	s, err := parseHTTPSettings(section)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"url":      s.URL.Redacted(),
		"method":   s.Method,
		"username": s.Username,
		"password": maskSecret(s.Password),
		"token":    maskSecret(s.Token),
		"timeout":  s.Timeout.String(),
	}, nil
}

// Upload posts the file to the configured URL
func (t *HTTPTransport) Upload(ctx context.Context, filePath string, section config.Section) Outcome {
	settings, err := parseHTTPSettings(section)
	if err != nil {
		t.logger.Error("HTTP upload failed", "error", err)
		return Failure(KindHTTP, err)
	}

	destination := settings.URL.Redacted()
	t.logger.Info(fmt.Sprintf("Uploading %s to %s via HTTP %s", filePath, destination, settings.Method))

	statusCode, n, err := t.send(ctx, filePath, settings)
	if err != nil {
		t.logger.Error("HTTP upload failed", "error", err)
		return Failure(KindHTTP, err)
	}

	t.logger.Info("HTTP upload completed successfully",
		"status", statusCode, "size", humanize.Bytes(uint64(n)))
	return Success(KindHTTP, destination, n,
		fmt.Sprintf("HTTP upload completed successfully with status code %d", statusCode))
}

func (t *HTTPTransport) send(ctx context.Context, filePath string, s HTTPSettings) (int, int64, error) {
	body, contentType, n, err := multipartBody(filePath)
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL.String(), body)
	if err != nil {
		return 0, 0, fmt.Errorf("http: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	// Basic credentials take the Authorization header when both are configured
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.Username != "" {
		if s.Token != "" {
			t.logger.Warn("Both basic auth and token configured, sending basic auth")
		}
		req.SetBasicAuth(s.Username, s.Password)
	}

	client := t.httpClient
	if client == nil {
		client = &http.Client{Timeout: s.Timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("http: upload failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		// Drain response body to reuse connection
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, n, nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if msg := strings.TrimSpace(string(text)); msg != "" {
		return resp.StatusCode, 0, fmt.Errorf("http: upload failed with status code %d: %s", resp.StatusCode, msg)
	}
	return resp.StatusCode, 0, fmt.Errorf("http: upload failed with status code %d", resp.StatusCode)
}

// multipartBody encodes the file as the "file" field of a multipart form
func multipartBody(filePath string) (*bytes.Buffer, string, int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", 0, fmt.Errorf("http: failed to open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", 0, fmt.Errorf("http: failed to build form: %w", err)
	}
	n, err := io.Copy(part, f)
	if err != nil {
		return nil, "", 0, fmt.Errorf("http: failed to read %s: %w", filePath, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", 0, fmt.Errorf("http: failed to build form: %w", err)
	}
	return body, w.FormDataContentType(), n, nil
}

func init() {
	RegisterTransport(KindHTTP, func(logger *slog.Logger) Transport {
		return NewHTTPTransport(logger, nil)
	})
}
