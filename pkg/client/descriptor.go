package client

import (
	"fmt"
	"net/http"
	"net/url"
)

// Method is the HTTP method of a request descriptor.
type Method string

const (
	// MethodGet is the only method the library endpoint accepts.
	MethodGet Method = http.MethodGet
)

// Descriptor names one request to issue: method, target URL and query.
// It is immutable once built; use NewDescriptor so the query is copied.
type Descriptor struct {
	method Method
	target string
	query  url.Values
}

// NewDescriptor creates a descriptor. The query may be nil.
func NewDescriptor(method Method, target string, query url.Values) Descriptor {
	var q url.Values
	if query != nil {
		q = make(url.Values, len(query))
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
	}
	return Descriptor{method: method, target: target, query: q}
}

// Get is shorthand for NewDescriptor(MethodGet, target, query).
func Get(target string, query url.Values) Descriptor {
	return NewDescriptor(MethodGet, target, query)
}

// Method returns the request method.
func (d Descriptor) Method() Method {
	if d.method == "" {
		return MethodGet
	}
	return d.method
}

// Target returns the target URL without the query.
func (d Descriptor) Target() string {
	return d.target
}

// Query returns a copy of the query parameters.
func (d Descriptor) Query() url.Values {
	q := make(url.Values, len(d.query))
	for k, v := range d.query {
		q[k] = append([]string(nil), v...)
	}
	return q
}

// URL resolves the target and appends the encoded query.
func (d Descriptor) URL() (*url.URL, error) {
	u, err := url.Parse(d.target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", d.target, err)
	}
	if len(d.query) > 0 {
		existing := u.Query()
		for k, v := range d.query {
			for _, s := range v {
				existing.Add(k, s)
			}
		}
		u.RawQuery = existing.Encode()
	}
	return u, nil
}

// String renders the full request line, for logs.
func (d Descriptor) String() string {
	u, err := d.URL()
	if err != nil {
		return string(d.Method()) + " " + d.target
	}
	return string(d.Method()) + " " + u.String()
}
