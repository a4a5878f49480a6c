package rendering

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Template is a read-only PDF template loaded on first use and shared by
// reference afterwards. The returned bytes must not be modified.
type Template struct {
	path string
	once sync.Once
	data []byte
	err  error
}

// NewTemplate returns a Template that reads path on the first Bytes call.
func NewTemplate(path string) *Template {
	return &Template{path: path}
}

// NewTemplateFromBytes returns an already-loaded Template.
func NewTemplateFromBytes(data []byte) *Template {
	t := &Template{data: data}
	t.once.Do(func() {})
	return t
}

// Bytes returns the template content, loading it once.
func (t *Template) Bytes() ([]byte, error) {
	t.once.Do(func() {
		data, err := os.ReadFile(t.path)
		if err != nil {
			if os.IsNotExist(err) {
				t.err = &TemplateError{Message: fmt.Sprintf("template file not found: %s", t.path), Cause: err}
				return
			}
			t.err = &TemplateError{Message: fmt.Sprintf("failed to read template file: %s", t.path), Cause: err}
			return
		}
		t.data = data
	})
	return t.data, t.err
}

// PageCount parses a PDF and returns its page count.
func PageCount(doc []byte) (int, error) {
	if len(doc) == 0 {
		return 0, fmt.Errorf("empty document")
	}
	return api.PageCount(bytes.NewReader(doc), pdfConfig())
}
