package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/api/openapi"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
)

// OpenAPI contract error codes.
const (
	CodeOpenAPIRouteInvalid    = "OPENAPI_ROUTE_INVALID"
	CodeOpenAPIRequestInvalid  = "OPENAPI_REQUEST_INVALID"
	CodeOpenAPIResponseInvalid = "OPENAPI_RESPONSE_INVALID"

	openAPIResponseValidationMessage = "response does not conform to OpenAPI contract"
)

// Authentication is enforced by JWTAuth and the RBAC guards; the contract
// only declares it.
var skipAuthentication = &openapi3filter.Options{
	AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
}

// MustOpenAPIValidator is NewOpenAPIValidator for router setup. It panics
// when the embedded back-office contract does not load.
func MustOpenAPIValidator(basePath string) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator checks every request and response of a declared
// back-office route against the embedded contract. A request that breaks it
// is rejected with 400. A response that breaks it, such as a role payload
// missing its matrix, is replaced by a 500 error envelope. Paths the
// contract does not declare, like /log/level, pass through.
func NewOpenAPIValidator(basePath string) (gin.HandlerFunc, error) {
	doc, err := openapi.Load()
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create contract router: %w", err)
	}
	v := &contractValidator{router: router, basePath: normalizeBasePath(basePath)}
	return v.handle, nil
}

type contractValidator struct {
	router   routers.Router
	basePath string
}

func (v *contractValidator) handle(c *gin.Context) {
	route, pathParams, err := v.findRoute(c.Request)
	switch {
	case isPathNotFoundError(err):
		c.Next()
		return
	case err != nil:
		AbortWithError(c, apperrors.BadRequest(CodeOpenAPIRouteInvalid, err.Error()))
		return
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    c.Request,
		PathParams: pathParams,
		Route:      route,
		Options:    skipAuthentication,
	}
	if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
		AbortWithError(c, apperrors.BadRequest(CodeOpenAPIRequestInvalid, err.Error()))
		return
	}

	buf := newResponseBuffer(c.Writer)
	c.Writer = buf
	c.Next()

	if err := v.validateResponse(c.Request.Context(), input, buf); err != nil {
		logger.Error("OpenAPI response validation failed",
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.String("route", route.Path),
			zap.String("method", c.Request.Method),
			zap.Int("status", buf.Status()),
			zap.Error(err),
		)
		buf.ResetJSON(http.StatusInternalServerError, ErrorBody(
			apperrors.Internal(CodeOpenAPIResponseInvalid, openAPIResponseValidationMessage),
		))
	}

	if _, err := buf.flushToClient(); err != nil {
		logger.Warn("failed to flush validated response",
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.String("route", route.Path),
			zap.Error(err),
		)
	}
}

func (v *contractValidator) validateResponse(ctx context.Context, req *openapi3filter.RequestValidationInput, buf *responseBuffer) error {
	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: req,
		Status:                 buf.Status(),
		Header:                 buf.Header().Clone(),
		Options:                skipAuthentication,
	}
	if buf.Size() > 0 {
		input.SetBodyBytes(buf.body.Bytes())
	}
	return openapi3filter.ValidateResponse(ctx, input)
}

// findRoute matches the request as sent, then with the base path stripped.
// The request URL is left as it came in.
func (v *contractValidator) findRoute(req *http.Request) (*routers.Route, map[string]string, error) {
	path, rawPath := req.URL.Path, req.URL.RawPath
	defer func() {
		req.URL.Path, req.URL.RawPath = path, rawPath
	}()

	route, params, err := v.router.FindRoute(req)
	if err == nil || !isPathNotFoundError(err) {
		return route, params, err
	}

	stripped := normalizeValidationPath(v.basePath, path)
	if stripped == path {
		return nil, nil, err
	}
	req.URL.Path = stripped
	if rawPath != "" {
		req.URL.RawPath = normalizeValidationPath(v.basePath, rawPath)
	}
	return v.router.FindRoute(req)
}

func normalizeBasePath(basePath string) string {
	basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

// normalizeValidationPath maps /api/v1/roles/save to /roles/save, the form
// the contract declares.
func normalizeValidationPath(basePath, path string) string {
	switch {
	case basePath == "" && path == "":
		return "/"
	case basePath == "":
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	default:
		return path
	}
}

func isPathNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, routers.ErrPathNotFound) {
		return true
	}
	var routeErr *routers.RouteError
	return errors.As(err, &routeErr) && routeErr.Reason == routers.ErrPathNotFound.(*routers.RouteError).Reason
}

// responseBuffer holds the handler's response until it has been checked
// against the contract.
type responseBuffer struct {
	gin.ResponseWriter
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func newResponseBuffer(w gin.ResponseWriter) *responseBuffer {
	return &responseBuffer{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *responseBuffer) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *responseBuffer) WriteHeaderNow() { w.wroteHeader = true }

func (w *responseBuffer) Write(data []byte) (int, error) {
	w.wroteHeader = true
	return w.body.Write(data)
}

func (w *responseBuffer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *responseBuffer) Status() int { return w.statusCode }

func (w *responseBuffer) Size() int { return w.body.Len() }

func (w *responseBuffer) Written() bool { return w.wroteHeader }

// ResetJSON discards the buffered response and replaces it with payload.
func (w *responseBuffer) ResetJSON(statusCode int, payload gin.H) {
	w.body.Reset()
	w.statusCode = statusCode
	w.wroteHeader = true
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"status":"error","code":"` + CodeOpenAPIResponseInvalid + `","message":"` + openAPIResponseValidationMessage + `"}`)
	}
	w.body.Write(data)
}

// flushToClient writes the buffered status and body to the client.
func (w *responseBuffer) flushToClient() (int, error) {
	w.ResponseWriter.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		return 0, nil
	}
	return w.ResponseWriter.Write(w.body.Bytes())
}
