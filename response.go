package routekit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Response is what a Handler returns on success.
type Response struct {
	Status int
	Body   any
	Header http.Header
}

// JSON returns a response that encodes v as JSON with the given status.
func JSON(status int, v any) *Response {
	return &Response{Status: status, Body: v}
}

// OK returns a 200 JSON response.
func OK(v any) *Response { return JSON(http.StatusOK, v) }

// Created returns a 201 JSON response.
func Created(v any) *Response { return JSON(http.StatusCreated, v) }

// NoContent returns an empty 204 response.
func NoContent() *Response { return &Response{Status: http.StatusNoContent} }

// SetHeader sets a response header and returns the response.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// rawBody is written verbatim instead of being JSON encoded.
type rawBody struct {
	contentType string
	data        []byte
}

// Raw returns a response whose body is written as-is.
func Raw(status int, contentType string, data []byte) *Response {
	return &Response{Status: status, Body: rawBody{contentType: contentType, data: data}}
}

// writeResponse encodes resp. The body is marshaled before anything is
// written so an encoding failure can still become an error response.
func writeResponse(w http.ResponseWriter, resp *Response, logger *slog.Logger) int {
	if resp == nil {
		resp = NoContent()
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	var body []byte
	contentType := "application/json"
	switch b := resp.Body.(type) {
	case nil:
	case rawBody:
		body, contentType = b.data, b.contentType
	default:
		if status == http.StatusNoContent {
			break
		}
		encoded, err := json.Marshal(b)
		if err != nil {
			return writeError(w, Internal(fmt.Errorf("encode response: %w", err)), logger)
		}
		body = append(encoded, '\n')
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if body != nil {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	if body != nil {
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(body)
	}
	return status
}

// writeError translates err into the failure envelope. Internal failures
// are logged with full detail and reported with a generic message.
func writeError(w http.ResponseWriter, err error, logger *slog.Logger) int {
	status, env := translate(err)

	if status >= http.StatusInternalServerError && env.Code == KindInternal.Code() && logger != nil {
		logger.Error("request failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(env)
	return status
}
