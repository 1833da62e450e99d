// Package render serves server-side rendered documents: the output of a Renderer
// for the requested location, streamed between a fixed document prefix and suffix.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userlist/internal/logger"
)

// ErrNoRenderer is returned when the server is built without a rendering capability.
var ErrNoRenderer = errors.New("no server-side renderer is configured")

// Renderer turns a location into a document body stream.
type Renderer interface {
	Render(ctx context.Context, location string, viewContext map[string]any) (io.ReadCloser, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, location string, viewContext map[string]any) (io.ReadCloser, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, location string, viewContext map[string]any) (io.ReadCloser, error) {
	return f(ctx, location, viewContext)
}

const bodyMarker = "separator"

var documentTemplate = template.Must(template.New("document").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
    <link rel="stylesheet" type="text/css" href="/css/main.css" />
  </head>
  <body>
    <div id="app">{{.Body}}</div>
    <script type="text/javascript" src="/js/main.bundle.js"></script>
  </body>
</html>
`))

// Shell is the document around the rendered body.
type Shell struct {
	Start string
	End   string
}

// NewShell renders the document template once and splits it where the body goes.
func NewShell(title string) (*Shell, error) {
	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(bodyMarker),
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/render/render.go/NewShell(): error while `documentTemplate.Execute()` calling: %w", err)
	}

	document := buf.String()
	at := strings.LastIndex(document, bodyMarker)

	return &Shell{
		Start: document[:at],
		End:   document[at+len(bodyMarker):],
	}, nil
}

// Handler streams rendered documents.
type Handler struct {
	shell    *Shell
	renderer Renderer
}

// NewHandler returns a Handler. Both the shell and the renderer are required.
func NewHandler(shell *Shell, renderer Renderer) (*Handler, error) {
	if renderer == nil {
		return nil, ErrNoRenderer
	}
	if shell == nil {
		return nil, errors.New("in internal/render/render.go/NewHandler(): no document shell")
	}

	return &Handler{
		shell:    shell,
		renderer: renderer,
	}, nil
}

// ServeHTTP writes the document prefix, forwards the rendered stream chunk by chunk
// and writes the suffix once the stream is complete.
func (h *Handler) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	stream, err := h.renderer.Render(request.Context(), request.URL.RequestURI(), map[string]any{})
	if err != nil {
		logger.Log.Errorln("Error calling the `h.renderer.Render()`:", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	flusher, _ := response.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(response, h.shell.Start); err != nil {
		return
	}
	flush()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, err := response.Write(buf[:n]); err != nil {
				logger.Log.Debugln("the client went away while rendering", "uri", request.RequestURI, zap.Error(err))
				return
			}
			flush()
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			logger.Log.Errorln("Error reading the rendered stream:", zap.Error(readErr))
			return
		}
	}

	_, _ = io.WriteString(response, h.shell.End)
}
