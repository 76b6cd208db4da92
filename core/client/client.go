/*
Package client provides easy and fast in-process access to the REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The same
client can also talk to a remote backend through its URL. It is the tool of choice
for unit tests.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithToken() adds a bearer token to every request.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
func NewWithURL(url string) Client {
	return Client{
		url:            strings.TrimSuffix(url, "/"),
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		if k != key {
			headers[k] = v
		}
	}
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which authenticates with the bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the base context of all requests
func (c Client) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// do executes the request and returns status, header and body of the response
func (c Client) do(method, path string, headers map[string]string, body io.Reader) (int, http.Header, []byte, error) {
	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, body)
	if err != nil {
		return http.StatusBadRequest, nil, nil, err
	}
	for key, value := range c.defaultHeaders {
		r.Header.Set(key, value)
	}
	for key, value := range headers {
		r.Header.Set(key, value)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		return res.StatusCode, res.Header, rec.Body.Bytes(), nil
	}

	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	return res.StatusCode, res.Header, resBody, err
}

func decode(resBody []byte, result interface{}) error {
	if len(resBody) == 0 || result == nil {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

func encode(method, path string, body interface{}) ([]byte, error) {
	if j, ok := body.([]byte); ok {
		return j, nil
	}
	j, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s to %s: %w", method, path, err)
	}
	return j, nil
}

func statusError(status int, want int, resBody []byte) error {
	return fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
		status, want, strings.TrimSpace(string(resBody)))
}

// RawGet gets the resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// The path can be extend with query strings.
//
// result can be map[string]interface{} or a raw *[]byte.
// result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.RawGetWithHeader(path, nil, result)
	return status, err
}

// RawGetWithHeader gets the resource from path with additional request headers.
// Returns the actual http status code and the response header.
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	status, resHeader, resBody, err := c.do(http.MethodGet, path, header, nil)
	if err != nil {
		return status, resHeader, err
	}
	if status != http.StatusOK {
		return status, resHeader, statusError(status, http.StatusOK, resBody)
	}
	return status, resHeader, decode(resBody, result)
}

// RawPostWithHeader posts a resource to path. Expects http.StatusCreated or http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPostWithHeader(path string, headers map[string]string, body interface{}, result interface{}) (int, error) {
	j, err := encode(http.MethodPost, path, body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json"
	}
	status, _, resBody, err := c.do(http.MethodPost, path, headers, bytes.NewBuffer(j))
	if err != nil {
		return status, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return status, statusError(status, http.StatusCreated, resBody)
	}
	return status, decode(resBody, result)
}

// RawPost posts a resource to path. Expects http.StatusCreated or http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.RawPostWithHeader(path, nil, body, result)
}

// PostForm posts url encoded form values to path. Expects http.StatusOK as response.
func (c Client) PostForm(path string, values url.Values, result interface{}) (int, error) {
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	status, _, resBody, err := c.do(http.MethodPost, path, headers, strings.NewReader(values.Encode()))
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, decode(resBody, result)
}

// RawPut puts a resource to path. Expects http.StatusOK, http.StatusCreated or
// http.StatusNoContent as valid responses, otherwise it will flag an error.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	j, err := encode(http.MethodPut, path, body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	headers := map[string]string{"Content-Type": "application/json"}
	status, _, resBody, err := c.do(http.MethodPut, path, headers, bytes.NewBuffer(j))
	if err != nil {
		return status, err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return status, fmt.Errorf("put got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	return status, decode(resBody, result)
}

// RawDelete deletes the resource at path. Expects http.StatusOK or http.StatusNoContent as response,
// otherwise it will flag an error.
//
// result can be nil.
func (c Client) RawDelete(path string, result interface{}) (int, error) {
	status, _, resBody, err := c.do(http.MethodDelete, path, nil, nil)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return status, fmt.Errorf("delete got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	return status, decode(resBody, result)
}

// Resource represents a REST resource with integer identifiers, for example /api/v1/users
type Resource struct {
	client *Client
	path   string
}

// Resource returns a new resource client for the collection at path
func (c Client) Resource(path string) Resource {
	return Resource{client: &c, path: "/" + strings.Trim(path, "/")}
}

// Path returns the path of the collection
func (r Resource) Path() string {
	return r.path
}

// ItemPath returns the path of the item with id
func (r Resource) ItemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// Create posts body to the collection. Expects http.StatusCreated.
func (r Resource) Create(body interface{}, result interface{}) (int, error) {
	return r.client.RawPost(r.path, body, result)
}

// Read gets the item with id
func (r Resource) Read(id int64, result interface{}) (int, error) {
	return r.client.RawGet(r.ItemPath(id), result)
}

// Update puts body to the item with id
func (r Resource) Update(id int64, body interface{}, result interface{}) (int, error) {
	return r.client.RawPut(r.ItemPath(id), body, result)
}

// Delete deletes the item with id
func (r Resource) Delete(id int64, result interface{}) (int, error) {
	return r.client.RawDelete(r.ItemPath(id), result)
}

// List gets one page of the collection. Zero values for page or elements leave the
// server defaults in place.
func (r Resource) List(page, elements int, result interface{}) (int, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if elements > 0 {
		query.Set("elements", strconv.Itoa(elements))
	}
	path := r.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return r.client.RawGet(path, result)
}
