package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zigbind/zigbind/internal/ast"
	"github.com/zigbind/zigbind/internal/translate"
)

// Manifest is the YAML corpus description the translate and validate
// commands consume. File paths are relative to the manifest's directory.
type Manifest struct {
	// Profile is the default profile name; the --profile flag overrides it.
	Profile string           `yaml:"profile"`
	Modules []ManifestModule `yaml:"modules"`
}

// ManifestModule is one corpus module entry.
type ManifestModule struct {
	// Path is the "::"-separated module path, e.g. "um::winuser".
	Path string `yaml:"path"`
	// Link is the native library name functions link against.
	Link string `yaml:"link"`
	// Files lists the declaration files (JSON syntax trees) in order.
	Files []string `yaml:"files"`
}

// LoadError represents an error that occurred during corpus loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadManifest parses a corpus manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading manifest: %v", err)}
	}

	var m Manifest
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("parsing manifest: %v", err)}
	}
	if len(m.Modules) == 0 {
		return nil, &LoadError{Code: ErrCodeManifest, Message: "manifest declares no modules"}
	}
	for i, mod := range m.Modules {
		if mod.Path == "" {
			return nil, &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("module %d has no path", i)}
		}
		if len(mod.Files) == 0 {
			return nil, &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("module %s lists no files", mod.Path)}
		}
	}
	return &m, nil
}

// LoadCorpus loads the manifest at path and every declaration file it
// names, returning the corpus ready for translation.
func LoadCorpus(path string) (*Manifest, *translate.Corpus, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, nil, err
	}

	base := filepath.Dir(path)
	corpus := &translate.Corpus{}
	for _, mod := range m.Modules {
		tm := translate.Module{
			Path:    strings.Split(mod.Path, "::"),
			LinkLib: mod.Link,
		}
		for _, rel := range mod.Files {
			f, err := loadDeclFile(filepath.Join(base, rel))
			if err != nil {
				return nil, nil, err
			}
			tm.Files = append(tm.Files, f)
		}
		corpus.Modules = append(corpus.Modules, tm)
	}
	return m, corpus, nil
}

// loadDeclFile parses one JSON declaration file.
func loadDeclFile(path string) (*ast.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("declaration file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	var f ast.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Code: ErrCodeDeclParse, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	if f.Path == "" {
		f.Path = path
	}
	return &f, nil
}
