// Package confhook exposes a conf.Store over an HTTP API on a unix
// domain socket, so infrastructure tooling on the same host can read
// and update configuration of a running process.
//
// Updates can be observed through per-field callbacks: when a field is
// written through the API, the callback registered for that field and
// type runs synchronously before the request is answered. Callbacks run
// on the request-handling path and must not perform long-blocking I/O.
package confhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/pretty"

	"github.com/kjk/backbone/asynclog"
	"github.com/kjk/backbone/conf"
	"github.com/kjk/backbone/u"
)

// Callbacks maps field names to update callbacks, one map per field
// type. A write through the API invokes at most one callback: the one
// registered under the written field's name in the map matching the
// request's type.
type Callbacks struct {
	String map[string]func(key string, val string)
	Bool   map[string]func(key string, val bool)
	Float  map[string]func(key string, val float64)
	List   map[string]func(key string, val []string)
}

type Config struct {
	// filesystem path of the unix socket, parent directories are created
	SocketPath string
	Store      *conf.Store
	Callbacks  Callbacks
	// optional, requests are logged at INFO when set
	Logger *asynclog.Logger
}

// Hook serves the config API. Create with New, run with Serve, stop
// with Shutdown.
type Hook struct {
	store      *conf.Store
	callbacks  Callbacks
	socketPath string
	logger     *asynclog.Logger
	engine     *gin.Engine
	srv        *http.Server
}

func New(cfg Config) (*Hook, error) {
	if cfg.Store == nil {
		return nil, errors.New("confhook: Config.Store is required")
	}
	if cfg.SocketPath == "" {
		return nil, errors.New("confhook: Config.SocketPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	h := &Hook{
		store:      cfg.Store,
		callbacks:  cfg.Callbacks,
		socketPath: cfg.SocketPath,
		logger:     cfg.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), h.requestID(), h.accessLog())

	e.GET("/config", h.getConfig)
	e.GET("/config/:key", h.getField)
	e.PUT("/config/:key", h.setField)
	e.POST("/config/save", h.save)
	e.POST("/config/load", h.load)

	h.engine = e
	h.srv = &http.Server{Handler: e}
	return h, nil
}

// Engine returns the underlying gin engine, mainly for tests
func (h *Hook) Engine() *gin.Engine {
	return h.engine
}

// Serve listens on the unix socket and serves until Shutdown. A stale
// socket file from a previous unclean exit is removed first.
func (h *Hook) Serve() error {
	if u.PathExists(h.socketPath) {
		_ = os.Remove(h.socketPath)
	}
	ln, err := net.Listen("unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.socketPath, err)
	}
	defer os.Remove(h.socketPath)

	if err := h.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *Hook) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

func (h *Hook) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (h *Hook) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if h.logger == nil {
			return
		}
		h.logger.Info(fmt.Sprintf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.GetString("request_id")))
	}
}

// GET /config
func (h *Hook) getConfig(c *gin.Context) {
	d, err := json.Marshal(h.store.Config())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", pretty.Pretty(d))
}

// GET /config/:key?type=string|bool|float|list
func (h *Hook) getField(c *gin.Context) {
	key := c.Param("key")
	exists := h.store.Exists(key)

	var val any
	switch typ := c.DefaultQuery("type", "string"); typ {
	case "string":
		val = h.store.GetString(key)
	case "bool":
		val = h.store.GetBool(key)
	case "float":
		val = h.store.GetFloat(key)
	case "list":
		val = h.store.GetList(key)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type: " + typ})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "exists": exists, "value": val})
}

type setFieldRequest struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// PUT /config/:key
// The callback registered for (key, type) runs synchronously before the
// response is sent, so a caller that got a 200 knows the system has
// picked the new value up.
func (h *Hook) setField(c *gin.Context) {
	key := c.Param("key")
	var req setFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Type {
	case "string":
		var v string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is not a string"})
			return
		}
		h.store.SetString(key, v)
		if cb := h.callbacks.String[key]; cb != nil {
			cb(key, v)
		}
	case "bool":
		var v bool
		if err := json.Unmarshal(req.Value, &v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is not a bool"})
			return
		}
		h.store.SetBool(key, v)
		if cb := h.callbacks.Bool[key]; cb != nil {
			cb(key, v)
		}
	case "float":
		var v float64
		if err := json.Unmarshal(req.Value, &v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is not a number"})
			return
		}
		h.store.SetFloat(key, v)
		if cb := h.callbacks.Float[key]; cb != nil {
			cb(key, v)
		}
	case "list":
		var v []string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value is not a list of strings"})
			return
		}
		h.store.SetList(key, v)
		if cb := h.callbacks.List[key]; cb != nil {
			cb(key, v)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type: " + req.Type})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "updated": true})
}

// POST /config/save
func (h *Hook) save(c *gin.Context) {
	if err := h.store.WriteToDisk(); err != nil {
		if h.logger != nil {
			h.logger.Error(err.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /config/load
func (h *Hook) load(c *gin.Context) {
	if err := h.store.ReadFromDisk(); err != nil {
		if h.logger != nil {
			h.logger.Error(err.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
