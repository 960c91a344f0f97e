// Package transform renders transformation tokens and splices them into
// delivery URLs of uploaded assets.
//
// Grammar: a parameter renders as key_value (or a bare keyword), parameters of
// one component are joined by ",", components are joined by "/".
package transform

import (
	"net/url"
	"strconv"
	"strings"
)

// Param is a single transformation token.
type Param struct {
	Key   string
	Value string
}

func (p Param) String() string {
	switch {
	case p.Key == "":
		return ""
	case p.Value == "":
		return p.Key
	default:
		return p.Key + "_" + p.Value
	}
}

// Component groups parameters applied as one transformation step.
type Component []Param

func (c Component) String() string {
	parts := make([]string, 0, len(c))
	for _, p := range c {
		if s := p.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

// Chain is the ordered list of transformation steps.
type Chain []Component

func (c Chain) String() string {
	parts := make([]string, 0, len(c))
	for _, comp := range c {
		if s := comp.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Empty reports whether the chain renders no token at all.
func (c Chain) Empty() bool { return c.String() == "" }

// Count returns how many parameters with the given key the chain holds.
func (c Chain) Count(key string) int {
	n := 0
	for _, comp := range c {
		for _, p := range comp {
			if p.Key == key {
				n++
			}
		}
	}
	return n
}

// Builder accumulates a chain. Zero, false and empty values add nothing, so a
// disabled setting never contributes a token.
type Builder struct {
	chain Chain
	cur   Component
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends key_value when value is not empty.
func (b *Builder) Add(key, value string) *Builder {
	if key == "" || value == "" {
		return b
	}
	b.cur = append(b.cur, Param{Key: key, Value: value})
	return b
}

// Keyword appends a bare token rendered verbatim.
func (b *Builder) Keyword(token string) *Builder {
	if token == "" {
		return b
	}
	b.cur = append(b.cur, Param{Key: token})
	return b
}

// Int appends key_v unless v is zero.
func (b *Builder) Int(key string, v int) *Builder {
	if v == 0 {
		return b
	}
	return b.Add(key, strconv.Itoa(v))
}

// Float appends key_v unless v is zero, using the shortest decimal form.
func (b *Builder) Float(key string, v float64) *Builder {
	if v == 0 {
		return b
	}
	return b.Add(key, FormatFloat(v))
}

// Effect appends e_name[:arg...], skipping empty arguments.
func (b *Builder) Effect(name string, args ...string) *Builder {
	if name == "" {
		return b
	}
	value := name
	for _, a := range args {
		if a != "" {
			value += ":" + a
		}
	}
	return b.Add("e", value)
}

// Flag appends fl_name.
func (b *Builder) Flag(name string) *Builder { return b.Add("fl", name) }

// If runs fn only when cond holds.
func (b *Builder) If(cond bool, fn func(*Builder)) *Builder {
	if cond {
		fn(b)
	}
	return b
}

// Next closes the current component; following tokens start a new step.
func (b *Builder) Next() *Builder {
	if len(b.cur) > 0 {
		b.chain = append(b.chain, b.cur)
		b.cur = nil
	}
	return b
}

// Chain returns the accumulated chain including the open component.
func (b *Builder) Chain() Chain {
	b.Next()
	out := make(Chain, len(b.chain))
	copy(out, b.chain)
	return out
}

// FormatFloat renders v without trailing zeros.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Text escapes free text so it can sit inside a token without clashing with
// the grammar separators.
func Text(s string) string {
	escaped := url.PathEscape(strings.TrimSpace(s))
	return strings.ReplaceAll(escaped, ":", "%3A")
}

// LayerID converts a public identifier into the form used by layer tokens.
func LayerID(publicID string) string {
	return strings.ReplaceAll(strings.Trim(publicID, "/"), "/", ":")
}

// VideoLayerID references a video asset inside an l_ token.
func VideoLayerID(publicID string) string {
	return "video:" + LayerID(publicID)
}

// SubtitlesLayerID references a caption file produced for a video asset.
func SubtitlesLayerID(publicID, format string) string {
	return "subtitles:" + LayerID(publicID) + "." + format
}
