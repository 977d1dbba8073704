package commands

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// templateSuffix marks files rendered with text/template before writing.
const templateSuffix = ".tmpl"

// templateData is the data available to .tmpl files.
type templateData struct {
	Name      string
	Slug      string
	ModelType string
}

// copyTemplate copies an embedded template directory to the target path.
// Files ending in .tmpl are rendered with data and lose the suffix. Existing
// files are kept unless force is set. It returns the written files, relative
// to targetDir and in walk order.
func copyTemplate(templateName, targetDir string, data templateData, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if relPath == "" {
			return nil
		}

		targetRel := renameSpecialFiles(relPath)
		targetPath := filepath.Join(targetDir, filepath.FromSlash(targetRel))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil // Skip existing files
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if strings.HasSuffix(relPath, templateSuffix) {
			if content, err = renderTemplate(relPath, content, data); err != nil {
				return err
			}
		}

		if err := os.WriteFile(targetPath, content, 0600); err != nil {
			return err
		}
		written = append(written, targetRel)
		return nil
	})

	return written, err
}

func renderTemplate(name string, content []byte, data templateData) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// renameSpecialFiles handles files that need renaming (e.g., dotfiles) and
// strips the template suffix.
func renameSpecialFiles(p string) string {
	p = strings.TrimSuffix(p, templateSuffix)
	base := path.Base(p)
	dir := path.Dir(p)

	switch base {
	case "gitignore", "gitkeep":
		return path.Join(dir, "."+base)
	default:
		return p
	}
}

// listTemplateFiles returns all files in a template for display purposes.
func listTemplateFiles(templateName string) ([]string, error) {
	var files []string
	root := path.Join("templates", templateName)

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, renameSpecialFiles(strings.TrimPrefix(p, root+"/")))
		}
		return nil
	})

	return files, err
}
