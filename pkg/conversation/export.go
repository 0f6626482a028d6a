package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ExportFileName turns a conversation name into a file name, "conversation 2" becomes
// "conversation-2.json".
func ExportFileName(name string, ext string) string {
	if ext == "" {
		ext = ".json"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := strcase.ToKebab(name)
	if base == "" {
		base = "conversation"
	}
	return base + ext
}

// SaveToFile writes a transcript of c. The format is YAML for .yaml/.yml files and
// JSON otherwise. Image bytes are not included.
func SaveToFile(c *Conversation, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "could not create export directory")
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "could not create export file")
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(f)
		encoder.SetIndent(2)
		if err := encoder.Encode(c); err != nil {
			return errors.Wrap(err, "could not encode yaml")
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(c); err != nil {
			return errors.Wrap(err, "could not encode json")
		}
		return nil
	}
}
