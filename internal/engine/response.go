package engine

import (
	"io"
	"net/http"
	"sync"

	"github.com/moamenhredeen/restbind/internal/models"
)

// SendString sends d and returns the response body as text.
func (e *Engine) SendString(d *models.RequestDescriptor) (string, error) {
	resp, err := e.Send(d)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

// SendStream sends d and hands the open response body to the caller.
func (e *Engine) SendStream(d *models.RequestDescriptor) (io.ReadCloser, error) {
	resp, err := e.Send(d)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Exec sends d and discards the response body.
func (e *Engine) Exec(d *models.RequestDescriptor) error {
	resp, err := e.Send(d)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// Decode sends d and deserializes the response body into a T. String and
// byte slice results receive the raw body.
func Decode[T any](e *Engine, d *models.RequestDescriptor) (T, error) {
	var v T
	resp, err := e.Send(d)
	if err != nil {
		return v, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return v, err
	}
	err = e.decode(data, resp, &v)
	return v, err
}

func (e *Engine) decode(data []byte, resp *http.Response, target any) error {
	switch t := target.(type) {
	case *string:
		*t = string(data)
		return nil
	case *[]byte:
		*t = data
		return nil
	}
	return e.response.Deserialize(data, resp, target)
}

// Response is a fully read response whose content is deserialized on first
// access.
type Response[T any] struct {
	StatusCode int
	Status     string
	Header     http.Header
	RawBody    []byte
	Request    *http.Request

	// Error is set when the status does not indicate success and the strict
	// status policy applies.
	Error *APIError

	engine  *Engine
	resp    *http.Response
	once    sync.Once
	content T
	err     error
}

// IsSuccess reports whether the status indicates success.
func (r *Response[T]) IsSuccess() bool {
	return isSuccess(r.StatusCode)
}

// Content deserializes the body into a T once and caches the outcome.
func (r *Response[T]) Content() (T, error) {
	r.once.Do(func() {
		r.err = r.engine.decode(r.RawBody, r.resp, &r.content)
	})
	return r.content, r.err
}

// Fetch sends d and returns the whole response without raising status
// errors; under the strict policy a failing status is reported in
// Response.Error instead. Composition and transport errors are returned.
func Fetch[T any](e *Engine, d *models.RequestDescriptor) (*Response[T], error) {
	relaxed := *d
	relaxed.AllowAnyStatus = true
	resp, err := e.Send(&relaxed)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	r := &Response[T]{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		RawBody:    data,
		Request:    resp.Request,
		engine:     e,
		resp:       resp,
	}
	if !d.AllowAnyStatus && !isSuccess(resp.StatusCode) {
		r.Error = e.newAPIError(resp.Request, resp, data)
	}
	return r, nil
}
