package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
)

var (
	// ErrMissingCloudName indicates that the client was configured without a cloud.
	ErrMissingCloudName = errors.New("cloudinary: cloud name is required")
	// ErrMissingCredentials indicates that neither an unsigned preset nor an
	// api key/secret pair was configured.
	ErrMissingCredentials = errors.New("cloudinary: upload preset or api key and secret are required")
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Options configures the upload client.
type Options struct {
	CloudName      string
	APIKey         string
	APISecret      string
	UploadPreset   string
	Folder         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// Now is used for signature timestamps. Defaults to time.Now.
	Now func() time.Time
}

// UploadOptions tunes a single upload.
type UploadOptions struct {
	// ResourceType forces the upload bucket; detected from the bytes when empty.
	ResourceType domain.ResourceType
	// Params are extra upload parameters, e.g. raw_convert.
	Params map[string]string
}

// Client uploads files to the media host.
type Client struct {
	cloudName    string
	apiKey       string
	apiSecret    string
	uploadPreset string
	folder       string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	now          func() time.Time
}

type uploadResponse struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
	Bytes        int64  `json:"bytes"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Version      int64  `json:"version"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	cloud := strings.TrimSpace(opts.CloudName)
	if cloud == "" {
		return nil, ErrMissingCloudName
	}
	c := &Client{
		cloudName:    cloud,
		apiKey:       strings.TrimSpace(opts.APIKey),
		apiSecret:    strings.TrimSpace(opts.APISecret),
		uploadPreset: strings.TrimSpace(opts.UploadPreset),
		folder:       strings.Trim(strings.TrimSpace(opts.Folder), "/"),
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if !c.Signed() && c.uploadPreset == "" {
		return nil, ErrMissingCredentials
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		c.logger = &l
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// CloudName returns the configured cloud.
func (c *Client) CloudName() string {
	return c.cloudName
}

// Signed reports whether uploads are authenticated with the api secret
// instead of an unsigned preset.
func (c *Client) Signed() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Endpoint returns the upload URL for resource type rt.
func (c *Client) Endpoint(rt domain.ResourceType) string {
	return fmt.Sprintf("%s/%s/%s/upload", c.baseURL, url.PathEscape(c.cloudName), rt)
}

// Upload posts one file and returns the remote asset. Failures are reported as
// *domain.UploadError; the call is never retried.
func (c *Client) Upload(ctx context.Context, file domain.UploadFile, opts UploadOptions) (domain.MediaAsset, error) {
	if len(file.Data) == 0 {
		return domain.MediaAsset{}, &domain.UploadError{File: file.Name, Message: "file is empty"}
	}
	rt := opts.ResourceType
	if rt == "" {
		rt = file.ResourceType()
	}
	if !rt.Valid() {
		return domain.MediaAsset{}, fmt.Errorf("cloudinary: unsupported resource type %q", rt)
	}

	params := c.params(opts.Params)
	body, contentType, err := encodeForm(file, params)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("cloudinary: encode form: %w", err)
	}
	endpoint := c.Endpoint(rt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("cloudinary: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.MediaAsset{}, &domain.UploadError{File: file.Name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.MediaAsset{}, &domain.UploadError{File: file.Name, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail errorResponse
		_ = json.Unmarshal(raw, &detail)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("file", file.Name).
			Str("message", detail.Error.Message).
			Msg("cloudinary: upload rejected")
		return domain.MediaAsset{}, &domain.UploadError{
			File:       file.Name,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(detail.Error.Message),
		}
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.MediaAsset{}, &domain.UploadError{
			File: file.Name, StatusCode: resp.StatusCode,
			Message: "malformed upload response", Err: err,
		}
	}
	if decoded.PublicID == "" || decoded.SecureURL == "" {
		return domain.MediaAsset{}, &domain.UploadError{
			File: file.Name, StatusCode: resp.StatusCode,
			Message: "upload response is missing public_id or secure_url",
		}
	}
	asset := domain.MediaAsset{
		PublicID:     decoded.PublicID,
		SecureURL:    decoded.SecureURL,
		ResourceType: domain.ResourceType(decoded.ResourceType),
		SizeBytes:    decoded.Bytes,
		Format:       decoded.Format,
		Width:        decoded.Width,
		Height:       decoded.Height,
		Version:      decoded.Version,
	}
	if !asset.ResourceType.Valid() {
		asset.ResourceType = rt
	}
	if asset.SizeBytes == 0 {
		asset.SizeBytes = int64(len(file.Data))
	}
	c.logger.Debug().
		Str("public_id", asset.PublicID).
		Str("resource_type", string(asset.ResourceType)).
		Int64("bytes", asset.SizeBytes).
		Dur("elapsed", time.Since(started)).
		Msg("cloudinary: uploaded asset")
	return asset, nil
}

// params returns the form fields of one upload, signed when credentials are
// configured.
func (c *Client) params(extra map[string]string) map[string]string {
	params := make(map[string]string, len(extra)+5)
	for k, v := range extra {
		if k = strings.TrimSpace(k); k != "" && v != "" {
			params[k] = v
		}
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}
	if c.uploadPreset != "" {
		params["upload_preset"] = c.uploadPreset
	}
	if !c.Signed() {
		return params
	}
	params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	params["signature"] = Sign(params, c.apiSecret)
	params["api_key"] = c.apiKey
	return params
}

// unsignedParams never take part in the signature.
var unsignedParams = map[string]bool{
	"file": true, "cloud_name": true, "resource_type": true, "api_key": true, "signature": true,
}

// Sign computes the request signature: the parameters sorted by name, joined as
// k=v with "&", followed by the secret, hashed with SHA-1.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || unsignedParams[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func encodeForm(file domain.UploadFile, params map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, params[k]); err != nil {
			return nil, "", err
		}
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", file.MIME())
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
