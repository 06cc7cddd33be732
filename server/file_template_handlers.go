package server

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/jrsteele09/go-auth-login/accounts"
	"github.com/jrsteele09/go-auth-login/loginflow"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"userLabel":      loginflow.UserLabel,
	"userLabelShort": loginflow.UserLabelShort,
	"accountKey": func(record *accounts.Record) string {
		return record.Key()
	},
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs).Parse(string(content))
}
