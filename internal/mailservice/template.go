package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

// blocks every mail template must define.
var blocks = []string{"subject", "plainBody", "htmlBody"}

// Message is a rendered mail template.
type Message struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

// NewTemplate parses every embedded template once. Each file is parsed into its own set
// because they all define the same block names.
func NewTemplate() (*Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	tp := &Template{sets: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.New(path.Base(name)).ParseFS(templateFS, name)
		if err != nil {
			return nil, fmt.Errorf("could not parse template %s: %w", name, err)
		}

		for _, block := range blocks {
			if t.Lookup(block) == nil {
				return nil, fmt.Errorf("template %s does not define %q", name, block)
			}
		}

		tp.sets[path.Base(name)] = t
	}

	return tp, nil
}

// Render executes the blocks of the named template with data.
func (tp *Template) Render(name string, data any) (*Message, error) {
	t, ok := tp.sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	out := make([]string, len(blocks))
	for i, block := range blocks {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, block, data); err != nil {
			return nil, fmt.Errorf("could not render %s of %s: %w", block, name, err)
		}
		out[i] = buf.String()
	}

	return &Message{Subject: out[0], PlainBody: out[1], HTMLBody: out[2]}, nil
}
