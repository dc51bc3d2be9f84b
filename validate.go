package routekit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Input locations, in validation order.
const (
	LocationParams = "params"
	LocationQuery  = "query"
	LocationBody   = "body"
)

const defaultBodyContentType = "application/json"

const maxInt64Float = 1 << 63

var patternCache sync.Map // string -> *regexp.Regexp

func compiledPattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

// validateValue checks v against s and returns the normalized value.
// present is false when the value was absent from its parent.
func validateValue(s *Schema, v any, present bool, path string, errs *[]Violation) any {
	if !present || v == nil {
		if s.kind == KindOptional {
			return defaultOf(s)
		}
		msg := "is required"
		if present {
			msg = "must not be null"
		}
		*errs = append(*errs, Violation{Field: fieldPath(path), Message: msg})
		return nil
	}

	switch s.kind {
	case KindOptional:
		return validateValue(s.inner, v, true, path, errs)
	case KindObject:
		return validateObject(s, v, path, errs)
	case KindArray:
		return validateArray(s, v, path, errs)
	case KindString:
		return validateString(s, v, path, errs)
	case KindNumber, KindInteger:
		return validateNumber(s, v, path, errs)
	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			*errs = append(*errs, typeViolation(path, "boolean", v))
			return nil
		}
		return b
	default:
		*errs = append(*errs, Violation{Field: fieldPath(path), Message: "has an unknown schema kind"})
		return nil
	}
}

func validateObject(s *Schema, v any, path string, errs *[]Violation) any {
	m, ok := v.(map[string]any)
	if !ok {
		*errs = append(*errs, typeViolation(path, "object", v))
		return nil
	}

	out := make(map[string]any, len(s.fields))
	known := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		known[f.Name] = true
		raw, present := m[f.Name]
		val := validateValue(f.Schema, raw, present, joinPath(path, f.Name), errs)
		if val != nil {
			out[f.Name] = val
		}
	}

	if s.strict {
		for name := range m {
			if !known[name] {
				*errs = append(*errs, Violation{Field: joinPath(path, name), Message: "is not allowed"})
			}
		}
	}

	return out
}

func validateArray(s *Schema, v any, path string, errs *[]Violation) any {
	arr, ok := v.([]any)
	if !ok {
		*errs = append(*errs, typeViolation(path, "array", v))
		return nil
	}

	if s.minItems != nil && len(arr) < *s.minItems {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must have at least %d items", *s.minItems),
			Value:   len(arr),
		})
	}
	if s.maxItems != nil && len(arr) > *s.maxItems {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must have at most %d items", *s.maxItems),
			Value:   len(arr),
		})
	}

	out := make([]any, len(arr))
	for i, item := range arr {
		out[i] = validateValue(s.items, item, true, fmt.Sprintf("%s[%d]", path, i), errs)
	}
	return out
}

func validateString(s *Schema, v any, path string, errs *[]Violation) any {
	str, ok := v.(string)
	if !ok {
		*errs = append(*errs, typeViolation(path, "string", v))
		return nil
	}

	n := utf8.RuneCountInString(str)
	if s.minLength != nil && n < *s.minLength {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must be at least %d characters", *s.minLength),
			Value:   str,
		})
	}
	if s.maxLength != nil && n > *s.maxLength {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must be at most %d characters", *s.maxLength),
			Value:   str,
		})
	}
	if s.pattern != "" {
		re, err := compiledPattern(s.pattern)
		if err != nil || !re.MatchString(str) {
			*errs = append(*errs, Violation{
				Field:   fieldPath(path),
				Message: fmt.Sprintf("must match pattern %s", s.pattern),
				Value:   str,
			})
		}
	}
	if len(s.enum) > 0 && !slices.Contains(s.enum, str) {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must be one of [%s]", strings.Join(s.enum, ",")),
			Value:   str,
		})
	}

	return str
}

func validateNumber(s *Schema, v any, path string, errs *[]Violation) any {
	want := s.kind.String()

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			*errs = append(*errs, typeViolation(path, want, v))
			return nil
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		*errs = append(*errs, typeViolation(path, want, v))
		return nil
	}

	if math.IsInf(f, 0) || math.IsNaN(f) {
		*errs = append(*errs, typeViolation(path, want, v))
		return nil
	}

	if s.minimum != nil && f < *s.minimum {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must be at least %s", formatFloat(*s.minimum)),
			Value:   f,
		})
	}
	if s.maximum != nil && f > *s.maximum {
		*errs = append(*errs, Violation{
			Field:   fieldPath(path),
			Message: fmt.Sprintf("must be at most %s", formatFloat(*s.maximum)),
			Value:   f,
		})
	}

	if s.kind == KindInteger {
		if f != math.Trunc(f) {
			*errs = append(*errs, typeViolation(path, want, v))
			return nil
		}
		if n, ok := v.(json.Number); ok {
			i, err := n.Int64()
			if err == nil {
				return i
			}
			if errors.Is(err, strconv.ErrRange) {
				*errs = append(*errs, typeViolation(path, want, v))
				return nil
			}
		}
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if f >= maxInt64Float || f < math.MinInt64 {
			*errs = append(*errs, typeViolation(path, want, v))
			return nil
		}
		return int64(f)
	}

	return f
}

// validateStrings validates raw path captures or query values against an
// object schema, coercing each string to the declared kind first.
func validateStrings(s *Schema, raw map[string]string, location string) (map[string]any, error) {
	if s == nil {
		return map[string]any{}, nil
	}

	var errs []Violation
	input := make(map[string]any, len(raw))
	for _, f := range s.fields {
		str, present := raw[f.Name]
		if !present {
			continue
		}
		// Uncoercible strings are left as-is and fail the kind check below.
		if val, ok := coerceString(f.Schema.Unwrap(), str); ok {
			input[f.Name] = val
		} else {
			input[f.Name] = str
		}
	}
	if s.strict {
		for name := range raw {
			if !hasField(s, name) {
				input[name] = raw[name]
			}
		}
	}

	out, _ := validateObject(s, input, "", &errs).(map[string]any)
	if len(errs) > 0 {
		return nil, validationError(location, ReasonSchemaMismatch, "invalid "+location, errs)
	}
	return out, nil
}

// coerceString converts a raw string into the representation validateValue
// expects for kind.
func coerceString(s *Schema, raw string) (any, bool) {
	//exhaustive:ignore
	switch s.kind {
	case KindNumber, KindInteger:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return nil, false
		}
		return json.Number(raw), true
	case KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	case KindArray:
		if raw == "" {
			return []any{}, true
		}
		parts := strings.Split(raw, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			v, ok := coerceString(s.items.Unwrap(), p)
			if !ok {
				return nil, false
			}
			out[i] = v
		}
		return out, true
	case KindObject:
		return nil, false
	default:
		return raw, true
	}
}

// validateBody checks the content type, parses the body, and validates it.
func validateBody(s *Schema, declared, contentType string, raw []byte) (any, error) {
	if declared == "" {
		declared = defaultBodyContentType
	}

	// An absent optional body skips the media type and parse checks.
	if s.IsOptional() && len(bytes.TrimSpace(raw)) == 0 {
		return defaultOf(s), nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.EqualFold(mediaType, declared) {
		return nil, validationError(LocationBody, ReasonUnsupportedContentType,
			fmt.Sprintf("unsupported content type %q, expected %q", contentType, declared), nil)
	}

	var v any
	if isJSONMediaType(declared) {
		v, err = decodeJSON(raw)
		if err != nil {
			return nil, validationError(LocationBody, ReasonMalformedBody, "malformed body: "+err.Error(), nil)
		}
	} else {
		v = string(raw)
	}

	var errs []Violation
	out := validateValue(s, v, true, "", &errs)
	if len(errs) > 0 {
		return nil, validationError(LocationBody, ReasonSchemaMismatch, "invalid body", errs)
	}
	return out, nil
}

// decodeJSON parses exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func isJSONMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func defaultOf(s *Schema) any {
	if s.def != nil {
		return s.def
	}
	if s.kind == KindOptional && s.inner.def != nil {
		return s.inner.def
	}
	return nil
}

func hasField(s *Schema, name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func typeViolation(path, want string, v any) Violation {
	return Violation{
		Field:   fieldPath(path),
		Message: "must be " + article(want) + " " + want,
		Value:   v,
	}
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func fieldPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
