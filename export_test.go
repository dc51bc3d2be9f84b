package routekit

import (
	"net"
	"net/http"
)

// Test-only exports for internal functions.
var (
	GenerateOperationID = generateOperationID
	Translate           = translate
	FlattenQuery        = flattenQuery
	NewConnTracker      = newConnTracker
)

// MatchPattern compiles pattern and matches the escaped path against it.
func MatchPattern(pattern, escapedPath string) (map[string]string, bool, error) {
	p, err := compilePattern(pattern)
	if err != nil {
		return nil, false, err
	}
	captures, ok := p.match(escapedPath)
	return captures, ok, nil
}

// ValidateBody validates a body against s with the default content type.
func ValidateBody(s *Schema, contentType, body string) (any, error) {
	return validateBody(s, "", contentType, []byte(body))
}

// ValidateQuery validates raw query values against s.
func ValidateQuery(s *Schema, raw map[string]string) (map[string]any, error) {
	return validateStrings(s, raw, LocationQuery)
}

// Track feeds a ConnState transition to the tracker.
func (t *connTracker) Track(c net.Conn, st http.ConnState) { t.track(c, st) }

// Len returns the number of tracked connections.
func (t *connTracker) Len() int { return t.len() }

// Destroy closes every tracked connection.
func (t *connTracker) Destroy() int { return t.destroy() }
