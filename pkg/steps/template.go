package steps

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// RenderTemplate executes text as a text/template with the sprig function map.
func RenderTemplate(text string, data interface{}) (string, error) {
	tmpl, err := template.New("template").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "could not parse template")
	}

	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return "", errors.Wrap(err, "could not render template")
	}

	return buf.String(), nil
}
