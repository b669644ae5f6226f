// Package fzf is the interactive note picker: fuzzy-find over every
// markdown file in the vault with a rendered preview.
package fzf

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/anvil/internal/pathutil"
)

// Finder fuzzy-selects a markdown file under vaultDir.
type Finder struct {
	vaultDir string
	Header   string
	files    []string
}

func NewFinder(vaultDir, header string) *Finder {
	return &Finder{vaultDir: vaultDir, Header: header}
}

// Run presents the picker and returns the selected file's absolute path.
func (f *Finder) Run() (string, error) {
	return f.RunWithQuery("")
}

// RunWithQuery presents the picker pre-filtered by query.
func (f *Finder) RunWithQuery(query string) (string, error) {
	files, err := f.walk()
	if err != nil {
		return "", fmt.Errorf("error listing notes: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no markdown files under %s", f.vaultDir)
	}
	f.files = files

	idx, err := f.selectFile(query)
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			return "", fmt.Errorf("no file selected")
		}
		return "", err
	}
	return f.files[idx], nil
}

func (f *Finder) walk() ([]string, error) {
	var files []string
	err := filepath.WalkDir(f.vaultDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != f.vaultDir {
				return filepath.SkipDir
			}
			return nil
		}
		if pathutil.IsMarkdown(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (f *Finder) selectFile(query string) (int, error) {
	options := []fuzzyfinder.Option{
		fuzzyfinder.WithPreviewWindow(f.renderPreview),
	}
	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}
	if f.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(f.Header))
	}

	labels := make([]string, len(f.files))
	for i, file := range f.files {
		labels[i] = f.label(file)
	}

	return fuzzyfinder.Find(f.files, func(i int) string {
		return labels[i]
	}, options...)
}

// label shows the vault-relative path plus the note's first heading.
func (f *Finder) label(file string) string {
	rel, err := pathutil.VaultRelative(f.vaultDir, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	if title := firstHeading(file); title != "" {
		return fmt.Sprintf("%s  %s", rel, title)
	}
	return rel
}

func firstHeading(file string) string {
	fh, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

func (f *Finder) renderPreview(i, w, h int) string {
	if i == -1 {
		return ""
	}

	content, err := os.ReadFile(f.files[i])
	if err != nil {
		return "Error reading file"
	}

	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(100),
		glamour.WithColorProfile(termenv.ANSI256),
	)

	markdown, err := r.Render(string(content))
	if err != nil {
		return "Error rendering markdown"
	}
	return markdown
}
