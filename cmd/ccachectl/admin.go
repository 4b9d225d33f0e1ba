package main

import (
	"net/http"
	"time"

	"github.com/flowcache/ccache/cerrors"
	"github.com/flowcache/ccache/webserver"
)

// cacheName is the only cache this demo binary wires up; the :name path
// segment is kept to mirror a multi-cache admin surface without actually
// building out a cache registry for a single-cache demo.
const cacheName = "default"

type errorResponse struct {
	Error string `json:"error"`
}

type warmRequest struct {
	Keys []string `json:"keys"`
}

type policyResponse struct {
	Value  string `json:"value"`
	LifeMS int64  `json:"life_ms"`
	IdleMS int64  `json:"idle_ms"`
}

func registerAdminRoutes(server *webserver.WebServer, svc *service) {
	admin := server.Group("/admin/cache")

	admin.GET("/:name/keys/:key", handleDescribe(svc))
	admin.GET("/:name/keys/:key/value", handleGet(svc))
	admin.DELETE("/:name/keys/:key", handleRemove(svc))
	admin.POST("/:name/clear", handleClear(svc))
	admin.POST("/:name/warm", handleWarm(svc))

	server.GET("/admin/routes", handleRoutes(server))
}

// handleRoutes exposes the server's own registered route table, useful for
// confirming what a running instance actually exposes without cross
// referencing the source.
func handleRoutes(server *webserver.WebServer) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		return c.JSON(http.StatusOK, server.Routes())
	}
}

func checkName(c webserver.Context) bool {
	return c.Param("name") == cacheName
}

func handleGet(svc *service) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		if !checkName(c) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown cache"})
		}
		key := c.Param("key")
		value, err := svc.fetch(c.Request().Context(), key)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"key": key, "value": value})
	}
}

func handleDescribe(svc *service) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		if !checkName(c) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown cache"})
		}
		key := c.Param("key")
		value, policy, found := svc.memStore.Describe(key)
		if !found {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "key not present"})
		}
		return c.JSON(http.StatusOK, policyResponse{
			Value:  value,
			LifeMS: policy.LifeIn(time.Millisecond),
			IdleMS: policy.IdleIn(time.Millisecond),
		})
	}
}

func handleRemove(svc *service) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		if !checkName(c) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown cache"})
		}
		key := c.Param("key")
		value, removed := svc.cache.Remove(c.Request().Context(), key)
		if !removed {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "key not present"})
		}
		return c.JSON(http.StatusOK, map[string]string{"key": key, "value": value})
	}
}

func handleClear(svc *service) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		if !checkName(c) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown cache"})
		}
		svc.cache.Clear(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}
}

func handleWarm(svc *service) webserver.HandlerFunc {
	return func(c webserver.Context) error {
		if !checkName(c) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown cache"})
		}
		var req warmRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		if len(req.Keys) == 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "keys must not be empty"})
		}
		if depth := svc.warmChan.Depth(); depth >= 1 {
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "warm queue is full"})
		}
		ctx := c.Request().Context()
		for _, key := range req.Keys {
			if err := svc.warm(ctx, key); err != nil {
				return writeError(c, err)
			}
		}
		return c.JSON(http.StatusAccepted, map[string]int{"submitted": len(req.Keys)})
	}
}

// writeError translates a cerrors.InvalidArgument failure to 400, everything
// else to 500.
func writeError(c webserver.Context, err error) error {
	if cerrors.IsInvalidArgument(err) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
