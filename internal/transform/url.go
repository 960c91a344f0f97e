package transform

import "strings"

const uploadMarker = "/upload/"

// Build splices the rendered chain into the delivery URL of an asset, right
// after its "/upload/" segment. It performs no I/O and never fails: an empty
// chain returns baseURL unchanged and a URL without the marker receives the
// tokens in front of its last path segment.
func Build(baseURL string, chain Chain) string {
	tokens := chain.String()
	if tokens == "" {
		return baseURL
	}
	if i := strings.Index(baseURL, uploadMarker); i >= 0 {
		cut := i + len(uploadMarker)
		return baseURL[:cut] + tokens + "/" + baseURL[cut:]
	}
	if i := strings.LastIndex(baseURL, "/"); i > 0 && baseURL[i-1] != '/' && i < len(baseURL)-1 {
		return baseURL[:i+1] + tokens + "/" + baseURL[i+1:]
	}
	return strings.TrimRight(baseURL, "/") + "/" + tokens
}

// BuildAs is Build followed by swapping the file extension of the delivered
// asset, which makes the host transcode into that format.
func BuildAs(baseURL string, chain Chain, format string) string {
	return WithFormat(Build(baseURL, chain), format)
}

// WithFormat replaces (or appends) the extension of the last path segment.
func WithFormat(rawURL, format string) string {
	format = strings.TrimPrefix(strings.TrimSpace(format), ".")
	if format == "" {
		return rawURL
	}
	query := ""
	if q := strings.IndexAny(rawURL, "?#"); q >= 0 {
		rawURL, query = rawURL[:q], rawURL[q:]
	}
	slash := strings.LastIndex(rawURL, "/")
	last := rawURL[slash+1:]
	if dot := strings.LastIndex(last, "."); dot > 0 {
		last = last[:dot]
	}
	return rawURL[:slash+1] + last + "." + format + query
}
