package confhook

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/carlmjohnson/requests"
)

// Client talks to a Hook over its unix socket. The zero value is not
// usable, create with NewClient.
type Client struct {
	transport http.RoundTripper
}

func NewClient(socketPath string) *Client {
	return &Client{
		transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}
}

// the host is ignored, the transport always dials the socket
func (c *Client) req(path string) *requests.Builder {
	return requests.URL("http://confhook" + path).Transport(c.transport)
}

func (c *Client) fieldPath(key string) string {
	return "/config/" + url.PathEscape(key)
}

// Config fetches a snapshot of all entries
func (c *Client) Config(ctx context.Context) (map[string]string, error) {
	var m map[string]string
	err := c.req("/config").ToJSON(&m).Fetch(ctx)
	return m, err
}

// Dump fetches the config snapshot as pretty-printed JSON, as served
// by the hook (see getConfig)
func (c *Client) Dump(ctx context.Context) (string, error) {
	var s string
	err := c.req("/config").ToString(&s).Fetch(ctx)
	return s, err
}

// Exists reports whether key is set
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	err := c.req(c.fieldPath(key)).ToJSON(&resp).Fetch(ctx)
	return resp.Exists, err
}

func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := c.req(c.fieldPath(key)).Param("type", "string").ToJSON(&resp).Fetch(ctx)
	return resp.Value, err
}

func (c *Client) GetBool(ctx context.Context, key string) (bool, error) {
	var resp struct {
		Value bool `json:"value"`
	}
	err := c.req(c.fieldPath(key)).Param("type", "bool").ToJSON(&resp).Fetch(ctx)
	return resp.Value, err
}

func (c *Client) GetFloat(ctx context.Context, key string) (float64, error) {
	var resp struct {
		Value float64 `json:"value"`
	}
	err := c.req(c.fieldPath(key)).Param("type", "float").ToJSON(&resp).Fetch(ctx)
	return resp.Value, err
}

func (c *Client) GetList(ctx context.Context, key string) ([]string, error) {
	var resp struct {
		Value []string `json:"value"`
	}
	err := c.req(c.fieldPath(key)).Param("type", "list").ToJSON(&resp).Fetch(ctx)
	return resp.Value, err
}

func (c *Client) set(ctx context.Context, key string, typ string, val any) error {
	body := map[string]any{"type": typ, "value": val}
	return c.req(c.fieldPath(key)).Method(http.MethodPut).BodyJSON(body).Fetch(ctx)
}

func (c *Client) SetString(ctx context.Context, key string, v string) error {
	return c.set(ctx, key, "string", v)
}

func (c *Client) SetBool(ctx context.Context, key string, v bool) error {
	return c.set(ctx, key, "bool", v)
}

func (c *Client) SetFloat(ctx context.Context, key string, v float64) error {
	return c.set(ctx, key, "float", v)
}

func (c *Client) SetList(ctx context.Context, key string, v []string) error {
	return c.set(ctx, key, "list", v)
}

// Save asks the server to persist its in-memory config to disk
func (c *Client) Save(ctx context.Context) error {
	return c.req("/config/save").Method(http.MethodPost).Fetch(ctx)
}

// Load asks the server to replace its in-memory config from disk
func (c *Client) Load(ctx context.Context) error {
	return c.req("/config/load").Method(http.MethodPost).Fetch(ctx)
}
