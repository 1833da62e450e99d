// Package router wires the HTTP surface of the server: the user list API under /api/v1,
// the optional real-time channel, static assets and server-side rendered documents.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userlist/internal/gzippedhttp"
	"github.com/patric-chuzhbe/userlist/internal/logger"
	"github.com/patric-chuzhbe/userlist/internal/models"
)

const (
	exposedUserHeader = "x-skillcrucial-user"
	defaultBodyLimit  = 50 << 20
)

var errBodyIsNotObject = errors.New("the request body is not a JSON object")

type userLister interface {
	List(ctx context.Context) (models.Users, error)
}

type userKeeper interface {
	Create(ctx context.Context, partial models.User) (models.StatusResponse, error)
	Update(ctx context.Context, rawID string, partial models.User) (models.StatusResponse, error)
	Remove(ctx context.Context, rawID string) (models.StatusResponse, error)
	RemoveAll(ctx context.Context) (models.StatusResponse, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type userService interface {
	userLister
	userKeeper
	pinger
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	svc           userService
	exposedUserID string
	bodyLimit     int64
	assetsDir     string
	documents     http.Handler
	sockets       http.Handler
}

type initOptions struct {
	exposedUserID string
	bodyLimit     int64
	assetsDir     string
	documents     http.Handler
	sockets       http.Handler
}

// InitOption configures the router built by New.
type InitOption func(*initOptions)

// WithExposedUserID sets the value of the x-skillcrucial-user response header.
func WithExposedUserID(id string) InitOption {
	return func(options *initOptions) {
		options.exposedUserID = id
	}
}

// WithBodyLimit caps the size of request bodies.
func WithBodyLimit(limit int64) InitOption {
	return func(options *initOptions) {
		options.bodyLimit = limit
	}
}

// WithAssetsDir serves existing files of dir ahead of rendered documents.
func WithAssetsDir(dir string) InitOption {
	return func(options *initOptions) {
		options.assetsDir = dir
	}
}

// WithDocuments sets the handler of every GET outside the API.
func WithDocuments(handler http.Handler) InitOption {
	return func(options *initOptions) {
		options.documents = handler
	}
}

// WithSockets mounts the real-time channel at /ws.
func WithSockets(handler http.Handler) InitOption {
	return func(options *initOptions) {
		options.sockets = handler
	}
}

func (r *Router) writeJSON(response http.ResponseWriter, payload any) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		logger.Log.Errorln("Error calling the `encoder.Encode()`:", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`:", zap.Error(err))
	}
}

func (r *Router) internalError(response http.ResponseWriter, request *http.Request, err error) {
	logger.Log.Errorln(
		"internal error",
		"method", request.Method,
		"uri", request.RequestURI,
		zap.Error(err),
	)
	response.WriteHeader(http.StatusInternalServerError)
}

// readUser parses the request body: a JSON object or a URL-encoded form.
// An empty body and any other content type give an empty record.
func (r *Router) readUser(response http.ResponseWriter, request *http.Request) (models.User, error) {
	partial := models.User{}
	if request.Body == nil {
		return partial, nil
	}

	request.Body = http.MaxBytesReader(response, request.Body, r.bodyLimit)

	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(request.Body)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return partial, nil
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		var decoded any
		if err := decoder.Decode(&decoded); err != nil {
			return nil, err
		}
		if _, err := decoder.Token(); err != io.EOF {
			return nil, errors.New("unexpected data after the request body")
		}
		object, ok := decoded.(map[string]any)
		if !ok {
			return nil, errBodyIsNotObject
		}

		return object, nil

	case "application/x-www-form-urlencoded":
		if err := request.ParseForm(); err != nil {
			return nil, err
		}
		for key, values := range request.PostForm {
			if len(values) == 1 {
				partial[key] = values[0]
				continue
			}
			list := make([]any, 0, len(values))
			for _, value := range values {
				list = append(list, value)
			}
			partial[key] = list
		}
	}

	return partial, nil
}

func (r *Router) badBody(response http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		response.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(response, err.Error(), http.StatusBadRequest)
}

// GetApiv1users responds with the whole user list.
func (r *Router) GetApiv1users(response http.ResponseWriter, request *http.Request) {
	users, err := r.svc.List(request.Context())
	if err != nil {
		r.internalError(response, request, err)
		return
	}

	r.writeJSON(response, users)
}

// PostApiv1users appends the posted record with a new id.
func (r *Router) PostApiv1users(response http.ResponseWriter, request *http.Request) {
	partial, err := r.readUser(response, request)
	if err != nil {
		r.badBody(response, err)
		return
	}

	result, err := r.svc.Create(request.Context(), partial)
	if err != nil {
		r.internalError(response, request, err)
		return
	}

	r.writeJSON(response, result)
}

// PatchApiv1usersUserid merges the posted fields into the records with the given id.
func (r *Router) PatchApiv1usersUserid(response http.ResponseWriter, request *http.Request) {
	partial, err := r.readUser(response, request)
	if err != nil {
		r.badBody(response, err)
		return
	}

	result, err := r.svc.Update(request.Context(), chi.URLParam(request, "userId"), partial)
	if err != nil {
		r.internalError(response, request, err)
		return
	}

	r.writeJSON(response, result)
}

// DeleteApiv1usersUserid removes the records with the given id.
func (r *Router) DeleteApiv1usersUserid(response http.ResponseWriter, request *http.Request) {
	result, err := r.svc.Remove(request.Context(), chi.URLParam(request, "userId"))
	if err != nil {
		r.internalError(response, request, err)
		return
	}

	r.writeJSON(response, result)
}

// DeleteApiv1users removes the whole collection.
func (r *Router) DeleteApiv1users(response http.ResponseWriter, request *http.Request) {
	result, err := r.svc.RemoveAll(request.Context())
	if err != nil {
		r.internalError(response, request, err)
		return
	}

	r.writeJSON(response, result)
}

// GetPing checks the backing store.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.svc.Ping(request.Context()); err != nil {
		r.internalError(response, request, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetDocument serves a static asset when one exists for the path and a rendered document otherwise.
func (r *Router) GetDocument(response http.ResponseWriter, request *http.Request) {
	if r.assetsDir != "" {
		name := filepath.Join(r.assetsDir, filepath.FromSlash(path.Clean("/"+request.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			http.ServeFile(response, request, name)
			return
		}
	}

	if r.documents == nil {
		http.NotFound(response, request)
		return
	}

	r.documents.ServeHTTP(response, request)
}

// answerOptions ends every OPTIONS request that is not a CORS preflight with 204.
func answerOptions(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodOptions {
			response.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(response, request)
	})
}

func emptyNotFound(response http.ResponseWriter, _ *http.Request) {
	response.WriteHeader(http.StatusNotFound)
}

func (r *Router) withExposedUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.Header().Set(exposedUserHeader, r.exposedUserID)
		response.Header().Set("Access-Control-Expose-Headers", "X-SKILLCRUCIAL-USER")
		h.ServeHTTP(response, request)
	})
}

// New builds the HTTP handler of the server.
func New(svc userService, optionsProto ...InitOption) *chi.Mux {
	options := &initOptions{
		bodyLimit: defaultBodyLimit,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.bodyLimit <= 0 {
		options.bodyLimit = defaultBodyLimit
	}

	theRouter := &Router{
		svc:           svc,
		exposedUserID: options.exposedUserID,
		bodyLimit:     options.bodyLimit,
		assetsDir:     options.assetsDir,
		documents:     options.documents,
		sockets:       options.sockets,
	}

	router := chi.NewRouter()
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodHead,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"*"},
		}),
		answerOptions,
		logger.WithLoggingHTTPMiddleware,
		theRouter.withExposedUser,
		gzippedhttp.UngzipJSONAndTextHTMLRequest,
		gzippedhttp.GzipResponse,
		// Inside GzipResponse, so the 500 reaches the compressing writer before it commits.
		middleware.Recoverer,
	)

	router.Route("/api", func(api chi.Router) {
		api.Get(`/v1/users`, theRouter.GetApiv1users)
		api.Post(`/v1/users`, theRouter.PostApiv1users)
		api.Delete(`/v1/users`, theRouter.DeleteApiv1users)
		api.Patch(`/v1/users/{userId}`, theRouter.PatchApiv1usersUserid)
		api.Delete(`/v1/users/{userId}`, theRouter.DeleteApiv1usersUserid)
		api.NotFound(emptyNotFound)
		api.MethodNotAllowed(emptyNotFound)
	})

	router.Get(`/ping`, theRouter.GetPing)

	if theRouter.sockets != nil {
		router.Handle(`/ws`, theRouter.sockets)
	}

	router.Get(`/`, theRouter.GetDocument)
	router.Get(`/*`, theRouter.GetDocument)
	router.MethodNotAllowed(http.NotFound)

	return router
}
