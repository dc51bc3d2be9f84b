package routekit

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPattern is returned when a route path pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid path pattern")

// segment is one slash-separated component of a compiled pattern.
type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

// pathPattern is a compiled route pattern such as /todos/{todoId}.
//
// Matching is exact: the segment count must agree, literals compare
// byte-for-byte, and a trailing slash makes a distinct path.
type pathPattern struct {
	raw      string
	segments []segment
	params   []string
}

// compilePattern parses a pattern made of literal and {name} segments.
func compilePattern(pattern string) (*pathPattern, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, pattern)
	}

	p := &pathPattern{raw: pattern}
	seen := make(map[string]bool)

	parts := strings.Split(pattern[1:], "/")
	for i, part := range parts {
		if part == "" && i != len(parts)-1 {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, pattern)
		}

		if !strings.ContainsAny(part, "{}") {
			p.segments = append(p.segments, segment{literal: part})
			continue
		}

		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("%w: %q mixes literal text and a parameter in %q", ErrInvalidPattern, pattern, part)
		}

		name := part[1 : len(part)-1]
		if strings.HasSuffix(name, "...") {
			return nil, fmt.Errorf("%w: %q: wildcard segments are not supported", ErrInvalidPattern, pattern)
		}
		if !validParamName(name) {
			return nil, fmt.Errorf("%w: %q: bad parameter name %q", ErrInvalidPattern, pattern, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, pattern, name)
		}
		seen[name] = true

		p.segments = append(p.segments, segment{param: name})
		p.params = append(p.params, name)
	}

	return p, nil
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// match reports whether the escaped request path matches the pattern and
// returns the decoded parameter captures.
func (p *pathPattern) match(escapedPath string) (map[string]string, bool) {
	if !strings.HasPrefix(escapedPath, "/") {
		return nil, false
	}

	parts := strings.Split(escapedPath[1:], "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}

	var captures map[string]string
	for i, seg := range p.segments {
		part := parts[i]

		if seg.param == "" {
			if part == seg.literal {
				continue
			}
			// Literals may be percent-encoded on the wire.
			decoded, err := url.PathUnescape(part)
			if err != nil || decoded != seg.literal {
				return nil, false
			}
			continue
		}

		if part == "" {
			return nil, false
		}
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return nil, false
		}
		if captures == nil {
			captures = make(map[string]string, len(p.params))
		}
		captures[seg.param] = decoded
	}

	if captures == nil {
		captures = map[string]string{}
	}
	return captures, true
}
