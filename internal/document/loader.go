package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docintel/docintel/constants"
)

// FromFile reads a local file into a Document, deriving the declared
// content type from the extension. Image files are flagged as
// image-bearing; PDFs are not, since image detection inside a PDF is a
// collaborator concern, not ours.
func FromFile(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, fmt.Errorf("read file: %w", err)
	}
	ct := constants.ContentTypeForExt(filepath.Ext(abs))
	return Document{
		Filename:    filepath.Base(abs),
		ContentType: ct,
		Size:        int64(len(content)),
		HasImages:   strings.HasPrefix(ct, "image/"),
		Content:     content,
	}, nil
}
