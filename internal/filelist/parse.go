package filelist

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/openmined/niraclient/internal/uploader"
	"gopkg.in/yaml.v3"
)

// entry is a file list element: either a bare path or a FileSpec object.
type entry struct {
	uploader.FileSpec
}

func (e *entry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Path)
	}
	return json.Unmarshal(b, &e.FileSpec)
}

func (e *entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Path = node.Value
		return nil
	}
	return node.Decode(&e.FileSpec)
}

// Parse reads a JSON or YAML list of files:
//
//	[{"path": "scan.obj", "type": "scene"}, "textures/albedo.png"]
//
//	- path: scan.obj
//	  type: scene
//	- fetchurl: https://cdn.example.com/photos.zip
func Parse(r io.Reader) ([]uploader.FileSpec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &uploader.InputError{Err: fmt.Errorf("read file list: %w", err)}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &uploader.InputError{Err: ErrEmptyList}
	}

	var entries []entry
	if data[0] == '[' {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, &uploader.InputError{Err: fmt.Errorf("parse file list: %w", err)}
	}
	if len(entries) == 0 {
		return nil, &uploader.InputError{Err: ErrEmptyList}
	}

	specs := make([]uploader.FileSpec, 0, len(entries))
	for i, e := range entries {
		if e.Path == "" && e.FetchURL == "" {
			return nil, &uploader.InputError{Err: fmt.Errorf("entry %d: %w", i, ErrNoPath)}
		}
		specs = append(specs, e.FileSpec)
	}
	return specs, nil
}
