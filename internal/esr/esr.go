//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package esr is the deployment template of ETOS suite runner (ESR).
package esr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/fogfish/stream"
	"github.com/fogfish/suitestarter/internal/config"
	"github.com/fogfish/suitestarter/internal/manifest"
)

// Values substituted into the template. Every placeholder of the template
// is a field of the record, a placeholder without field fails rendering.
type Values struct {
	config.Config

	// Identity of the test suite, the identity of TERCC
	SuiteID string

	// Unique name of the job
	JobName string

	// TERCC as it is received
	EventJSON string

	// Serialized tracing context, empty if tracing is not active
	TraceCarrier string
}

// Template of suite runner job
type Template struct {
	name string
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"quote": quote,
	// reference to named object, YAML null if the name is not set
	"ref": func(s string) (string, error) {
		if !config.IsSet(s) {
			return config.Null, nil
		}
		return quote(s)
	},
	"set": config.IsSet,
}

// YAML double quoted scalar
func quote(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

// Parse template text
func Parse(name string, text []byte) (*Template, error) {
	tmpl, err := template.New(name).
		Funcs(funcs).
		Option("missingkey=error").
		Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	return &Template{name: name, tmpl: tmpl}, nil
}

// Load template from the path and validate it. Path is either local file or
// s3://bucket/key.
func Load(path string, cfg config.Config) (*Template, error) {
	fsys, name, err := mount(path)
	if err != nil {
		return nil, err
	}

	return LoadFS(fsys, name, cfg)
}

// LoadFS loads template from the file system and validates it.
func LoadFS(fsys fs.FS, name string, cfg config.Config) (*Template, error) {
	fi, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("template %s is not a regular file", name)
	}

	text, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	t, err := Parse(name, text)
	if err != nil {
		return nil, err
	}

	if err := t.Validate(cfg); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate renders the template with dummy values, the result is discarded.
func (t *Template) Validate(cfg config.Config) error {
	_, err := t.Render(Values{
		Config:       cfg,
		SuiteID:      "00000000-0000-0000-0000-000000000000",
		JobName:      "suite-runner-dry-run",
		EventJSON:    "{}",
		TraceCarrier: "",
	})
	if err != nil {
		return fmt.Errorf("dry run of template %s: %w", t.name, err)
	}

	return nil
}

// Render the template into manifest
func (t *Template) Render(v Values) (manifest.Value, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render template %s: %w", t.name, err)
	}

	val, err := manifest.Parse(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse rendered template %s: %w", t.name, err)
	}

	return val, nil
}

func mount(path string) (fs.FS, string, error) {
	if strings.HasPrefix(path, "s3://") {
		bucket, key, _ := strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
		if bucket == "" || key == "" {
			return nil, "", fmt.Errorf("invalid template location %s", path)
		}

		s3fs, err := stream.NewFS(bucket)
		if err != nil {
			return nil, "", fmt.Errorf("mount %s: %w", path, err)
		}

		return s3fs, "/" + key, nil
	}

	if path == "" {
		return nil, "", fmt.Errorf("template path is not defined")
	}

	return os.DirFS(filepath.Dir(path)), filepath.Base(path), nil
}
