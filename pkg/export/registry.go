package export

import "sort"

// Registry maps formats to their renderers.
type Registry struct {
	renderers map[Format]Renderer
}

// NewRegistry returns a registry with every built-in renderer wired.
func NewRegistry() *Registry {
	return &Registry{renderers: map[Format]Renderer{
		FormatXLSX: NewXLSXRenderer(),
		FormatCSV:  NewCSVRenderer(),
		FormatPDF:  NewPDFRenderer(),
		FormatDOCX: NewDocxRenderer(),
		FormatPPTX: NewPptxRenderer(),
	}}
}

// Register overrides or adds a renderer for a format.
func (r *Registry) Register(f Format, renderer Renderer) {
	r.renderers[f] = renderer
}

// Get returns the renderer for a format.
func (r *Registry) Get(f Format) (Renderer, bool) {
	renderer, ok := r.renderers[f]
	return renderer, ok
}

// Formats lists the registered formats in stable order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}
