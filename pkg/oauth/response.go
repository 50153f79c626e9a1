package oauth

import "net/http"

// Response collects what an engine wants written back. It is committed at
// most once; later writes are ignored.
type Response struct {
	Status int
	Header http.Header
	Body   any

	written bool
}

func NewResponse() *Response {
	return &Response{Header: http.Header{}}
}

// SetBody commits a status and body. It returns false if the response was
// already committed.
func (r *Response) SetBody(status int, body any) bool {
	if r.written {
		return false
	}
	r.Status = status
	r.Body = body
	r.written = true
	return true
}

// Redirect commits a 302 to location. It returns false if the response was
// already committed.
func (r *Response) Redirect(location string) bool {
	if r.written {
		return false
	}
	r.Header.Set("Location", location)
	r.Status = http.StatusFound
	r.Body = nil
	r.written = true
	return true
}

// Written reports whether the response has been committed.
func (r *Response) Written() bool { return r.written }

// Commit marks the response as committed with whatever Status, Header and
// Body currently hold. It returns false if it was already committed.
func (r *Response) Commit() bool {
	if r.written {
		return false
	}
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	r.written = true
	return true
}
