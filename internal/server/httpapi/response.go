package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/auth"
)

// Request is what a handler receives from the gateway: the raw JSON body,
// the path parameters and the authenticated principal, if any.
type Request struct {
	Body       []byte
	PathParams map[string]string
	Principal  *auth.Principal
}

// Param returns a path parameter or "".
func (r Request) Param(name string) string {
	return r.PathParams[name]
}

// Response is what a handler hands back to the gateway.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       any
}

// HandlerFunc is a gateway-independent endpoint.
type HandlerFunc func(ctx context.Context, req Request) Response

// CORS headers sent with every response.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
	"Access-Control-Allow-Headers": "*, Content-Type, Authorization",
}

type message struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

func reply(status int, body any) Response {
	return Response{StatusCode: status, Body: body}
}

// decode unmarshals the request body into v.
func decode(req Request, v any) error {
	if len(req.Body) == 0 {
		return common.NewValidationError("Request body is required")
	}
	if err := json.Unmarshal(req.Body, v); err != nil {
		return common.NewValidationError("Invalid JSON body")
	}
	return nil
}

const principalKey = "principal"

// adapt runs h for a gin request under the request timeout.
func adapt(h HandlerFunc, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: "Unreadable request body"})
			return
		}

		req := Request{Body: body, PathParams: make(map[string]string, len(c.Params))}
		for _, p := range c.Params {
			req.PathParams[p.Key] = p.Value
		}
		if v, ok := c.Get(principalKey); ok {
			req.Principal, _ = v.(*auth.Principal)
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		resp := h(ctx, req)
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.JSON(resp.StatusCode, resp.Body)
	}
}

// cors echoes the CORS headers and answers preflight requests for any path.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range corsHeaders {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatusJSON(http.StatusOK, message{Message: "CORS preflight response"})
			return
		}
		c.Next()
	}
}
