// Package filesystem provides a thin seam over the os file functions so
// components that touch the data dir can be tested with mocks.
package filesystem

import "os"

type FileSystem interface {
	Open(name string) (*os.File, error)
	Create(name string) (*os.File, error)
	ReadFile(name string) (string, error)
	WriteFile(name string, content string) error
}

type DefaultFileSystem struct{}

func (DefaultFileSystem) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (DefaultFileSystem) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (DefaultFileSystem) ReadFile(name string) (string, error) {
	content, err := os.ReadFile(name)
	return string(content), err
}

func (DefaultFileSystem) WriteFile(name string, content string) error {
	return os.WriteFile(name, []byte(content), 0644)
}
