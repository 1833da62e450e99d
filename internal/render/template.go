package render

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
)

// TemplateRenderer renders the server-side bundle, an html/template file
// executed with the location and the view context of each request.
type TemplateRenderer struct {
	bundle *template.Template
}

// NewTemplateRenderer loads the bundle. A missing bundle is an error.
func NewTemplateRenderer(bundlePath string) (*TemplateRenderer, error) {
	if _, err := os.Stat(bundlePath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRenderer, err)
	}

	bundle, err := template.ParseFiles(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("in internal/render/template.go/NewTemplateRenderer(): error while `template.ParseFiles()` calling: %w", err)
	}

	return &TemplateRenderer{bundle: bundle}, nil
}

// Render executes the bundle into a pipe, so bytes are readable as soon as they are produced.
func (r *TemplateRenderer) Render(ctx context.Context, location string, viewContext map[string]any) (io.ReadCloser, error) {
	pr, pw := io.Pipe()

	go func() {
		err := r.bundle.Execute(pw, struct {
			Location string
			Context  map[string]any
		}{
			Location: location,
			Context:  viewContext,
		})
		pw.CloseWithError(err)
	}()

	return pr, nil
}
