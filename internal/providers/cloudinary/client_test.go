package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

var jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")

func TestSignMatchesReferenceVector(t *testing.T) {
	got := Sign(map[string]string{
		"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
		"public_id": "sample_image",
		"timestamp": "1315060510",
		"file":      "ignored",
		"api_key":   "ignored",
	}, "abcd")
	if want := "bfd09f95f331f558cbd1320e67aa8d488770583e"; got != want {
		t.Fatalf("signature = %q, want %q", got, want)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{UploadPreset: "p"}); !errors.Is(err, ErrMissingCloudName) {
		t.Fatalf("err = %v, want ErrMissingCloudName", err)
	}
	if _, err := NewClient(Options{CloudName: "demo", APIKey: "key"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestUploadUnsigned(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1_1/demo/image/upload", http.StatusOK, map[string]any{
		"public_id":     "tools/cat",
		"secure_url":    "https://res.cloudinary.com/demo/image/upload/v1700000000/tools/cat.jpg",
		"resource_type": "image",
		"bytes":         2048,
		"format":        "jpg",
		"width":         640,
		"height":        480,
		"version":       1700000000,
	})
	client := newTestClient(t, transport, Options{UploadPreset: "unsigned_tools", Folder: "/tools/"})

	asset, err := client.Upload(context.Background(), domain.UploadFile{Name: "cat.jpg", Data: jpegBytes}, UploadOptions{})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.PublicID != "tools/cat" || asset.Width != 640 || asset.SizeBytes != 2048 || asset.Version != 1700000000 {
		t.Fatalf("asset = %+v", asset)
	}
	if asset.ResourceType != domain.ResourceTypeImage {
		t.Fatalf("resource type = %q, want image", asset.ResourceType)
	}

	form := transport.lastForm
	if got := form["upload_preset"]; got != "unsigned_tools" {
		t.Fatalf("upload_preset = %q, want unsigned_tools", got)
	}
	if got := form["folder"]; got != "tools" {
		t.Fatalf("folder = %q, want tools", got)
	}
	for _, field := range []string{"api_key", "signature", "timestamp"} {
		if _, ok := form[field]; ok {
			t.Fatalf("%s must not be sent for unsigned uploads", field)
		}
	}
	if !bytes.Equal(transport.lastFile, jpegBytes) {
		t.Fatalf("file part mismatch")
	}
	if transport.lastFileType != "image/jpeg" {
		t.Fatalf("file content type = %q, want image/jpeg", transport.lastFileType)
	}
}

func TestUploadSignedWithExtraParams(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1_1/demo/video/upload", http.StatusOK, map[string]any{
		"public_id":  "talk",
		"secure_url": "https://res.cloudinary.com/demo/video/upload/v1/talk.mp4",
	})
	client := newTestClient(t, transport, Options{
		APIKey:    "123456",
		APISecret: "secret",
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})

	asset, err := client.Upload(context.Background(),
		domain.UploadFile{Name: "talk.bin", ContentType: "application/octet-stream", Data: []byte("not really a video")},
		UploadOptions{ResourceType: domain.ResourceTypeVideo, Params: map[string]string{"raw_convert": "google_speech:vtt:en-US"}},
	)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.ResourceType != domain.ResourceTypeVideo {
		t.Fatalf("resource type = %q, want video", asset.ResourceType)
	}
	if asset.SizeBytes != int64(len("not really a video")) {
		t.Fatalf("size = %d, want local size", asset.SizeBytes)
	}

	form := transport.lastForm
	if form["api_key"] != "123456" || form["timestamp"] != "1700000000" {
		t.Fatalf("form = %v", form)
	}
	want := Sign(map[string]string{"raw_convert": "google_speech:vtt:en-US", "timestamp": "1700000000"}, "secret")
	if form["signature"] != want {
		t.Fatalf("signature = %q, want %q", form["signature"], want)
	}
}

func TestUploadRemoteErrorMessage(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1_1/demo/image/upload", http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "Invalid image file"},
	})
	client := newTestClient(t, transport, Options{UploadPreset: "p"})

	_, err := client.Upload(context.Background(), domain.UploadFile{Name: "a.jpg", Data: jpegBytes}, UploadOptions{})
	var uploadErr *domain.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("err = %v, want *domain.UploadError", err)
	}
	if uploadErr.StatusCode != http.StatusBadRequest || uploadErr.UserMessage() != "Invalid image file" {
		t.Fatalf("upload error = %+v", uploadErr)
	}
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("upload error should match ErrProviderFailure")
	}
}

func TestUploadServerErrorWithoutBody(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{
		"/v1_1/demo/image/upload": {status: http.StatusInternalServerError, body: []byte("oops")},
	}}
	client := newTestClient(t, transport, Options{UploadPreset: "p"})

	_, err := client.Upload(context.Background(), domain.UploadFile{Name: "a.jpg", Data: jpegBytes}, UploadOptions{})
	var uploadErr *domain.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("err = %v, want *domain.UploadError", err)
	}
	if got, want := uploadErr.UserMessage(), "media host responded with status 500"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestUploadMissingIdentity(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1_1/demo/image/upload", http.StatusOK, map[string]any{"public_id": "x"})
	client := newTestClient(t, transport, Options{UploadPreset: "p"})

	_, err := client.Upload(context.Background(), domain.UploadFile{Name: "a.jpg", Data: jpegBytes}, UploadOptions{})
	if domain.KindOf(err) != domain.ErrorKindUpload {
		t.Fatalf("kind = %q, want upload", domain.KindOf(err))
	}
}

func TestUploadTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	client := newTestClient(t, failingTransport{err: boom}, Options{UploadPreset: "p"})

	_, err := client.Upload(context.Background(), domain.UploadFile{Name: "a.jpg", Data: jpegBytes}, UploadOptions{})
	var uploadErr *domain.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("err = %v, want *domain.UploadError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("upload error should wrap the transport failure")
	}
	if uploadErr.UserMessage() != "media host unreachable" {
		t.Fatalf("message = %q", uploadErr.UserMessage())
	}
}

func TestUploadCanceledContext(t *testing.T) {
	client := newTestClient(t, &captureTransport{responses: map[string]responseStub{}}, Options{UploadPreset: "p"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Upload(ctx, domain.UploadFile{Name: "a.jpg", Data: jpegBytes}, UploadOptions{})
	if domain.KindOf(err) != domain.ErrorKindCanceled {
		t.Fatalf("kind = %q, want canceled (err = %v)", domain.KindOf(err), err)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport, Options{UploadPreset: "p"})

	if _, err := client.Upload(context.Background(), domain.UploadFile{Name: "empty.jpg"}, UploadOptions{}); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if transport.calls != 0 {
		t.Fatalf("calls = %d, want 0", transport.calls)
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper, opts Options) *Client {
	t.Helper()
	opts.CloudName = "demo"
	opts.HTTPClient = &http.Client{Transport: rt}
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

type captureTransport struct {
	responses    map[string]responseStub
	calls        int
	lastForm     map[string]string
	lastFile     []byte
	lastFileType string
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	c.calls++
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		return nil, err
	}
	c.lastForm = map[string]string{}
	for k, values := range req.MultipartForm.Value {
		c.lastForm[k] = values[0]
	}
	if headers := req.MultipartForm.File["file"]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			return nil, err
		}
		c.lastFile, _ = io.ReadAll(f)
		f.Close()
		c.lastFileType = headers[0].Header.Get("Content-Type")
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}

type failingTransport struct{ err error }

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) { return nil, f.err }
