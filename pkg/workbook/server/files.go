package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

// ImportFileName is the name an uploaded Excel document is stored under.
const ImportFileName = "workbook_data.xlsx"

// ErrNoWorkbook indicates a project directory without an .xlsx file.
var ErrNoWorkbook = errors.New("no workbook stored for project")

// ErrInvalidWorkbook indicates an upload that is not a readable .xlsx document.
var ErrInvalidWorkbook = errors.New("not a readable .xlsx document")

// FileStore keeps one directory per project under a root. The project's
// workbook is whichever .xlsx file in it was modified last.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// ProjectDir returns the directory holding project id's files.
func (fs *FileStore) ProjectDir(id int) string {
	return filepath.Join(fs.root, strconv.Itoa(id))
}

// Latest returns the most recently modified .xlsx file of project id.
func (fs *FileStore) Latest(id int) (string, error) {
	entries, err := os.ReadDir(fs.ProjectDir(id))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoWorkbook
	}
	if err != nil {
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(fs.ProjectDir(id), e.Name())
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNoWorkbook
	}
	return latest, nil
}

// Load reads project id's workbook, named after its file.
func (fs *FileStore) Load(id int) (models.Workbook, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.Latest(id)
	if err != nil {
		return models.Workbook{}, err
	}
	return xlsx.ReadFile(path)
}

// Save writes wb as "<workbook name>.xlsx" and returns the file path.
func (fs *FileStore) Save(id int, wb models.Workbook) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.prepare(id, fileName(wb.Name)+".xlsx")
	if err != nil {
		return "", err
	}
	if err := xlsx.WriteFile(path, wb); err != nil {
		return "", err
	}
	return path, nil
}

// Update loads project id's workbook, applies fn, and writes the result
// back to the same file.
func (fs *FileStore) Update(id int, fn func(wb *models.Workbook) error) (models.Workbook, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.Latest(id)
	if err != nil {
		return models.Workbook{}, err
	}
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return models.Workbook{}, err
	}
	if err := fn(&wb); err != nil {
		return models.Workbook{}, err
	}
	if err := xlsx.WriteFile(path, wb); err != nil {
		return models.Workbook{}, err
	}
	return wb, nil
}

// Import stores an uploaded document as ImportFileName, replacing any
// previous import. The document must parse as a workbook; otherwise nothing
// is written and the error wraps ErrInvalidWorkbook.
func (fs *FileStore) Import(id int, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if _, err := xlsx.Read(bytes.NewReader(data), ""); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	path, err := fs.prepare(id, ImportFileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (fs *FileStore) prepare(id int, name string) (string, error) {
	dir := fs.ProjectDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("prepare project directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// fileName makes a workbook name safe to use as a file name.
func fileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return models.DefaultWorkbookName
	}
	return name
}
