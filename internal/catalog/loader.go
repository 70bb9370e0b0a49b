package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var embeddedFS embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default возвращает встроенный каталог шаблонов.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadFS(embeddedFS, "templates")
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded templates: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load читает все *.yaml / *.yml из каталога и сливает их в один Catalog.
func Load(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS: то же, что Load, но поверх произвольной fs.FS.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no template files in %q", dir)
	}
	// стабильно: по имени файла
	sort.Strings(names)

	out := &Catalog{}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, name)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		part, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		// имя каталога: из первого файла, где оно задано, иначе из имени файла
		if out.Name == "" {
			out.Name = part.Name
			if out.Name == "" {
				out.Name = strings.TrimSuffix(name, filepath.Ext(name))
			}
		}
		out.Base = append(out.Base, part.Base...)
		out.Predefined = append(out.Predefined, part.Predefined...)
	}
	return out, nil
}

// Parse разбирает один YAML-файл шаблонов.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	for i := range c.Base {
		c.Base[i].Type = FieldType(normalizeKey(string(c.Base[i].Type)))
	}
	for i := range c.Predefined {
		p := &c.Predefined[i]
		p.Type = PredefinedType(normalizeKey(string(p.Type)))
		p.FieldType = FieldType(normalizeKey(string(p.FieldType)))
		if p.FieldType == "" {
			p.FieldType = FieldText
		}
	}
	return &c, nil
}
