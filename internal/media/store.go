// Package media stores product images on disk under <root>/images/<url key>/.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"eshop/internal/domain"
)

// MaxImageSize caps a single upload.
const MaxImageSize = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Store struct {
	Root string
}

func (s *Store) dir(key string) string { return filepath.Join(s.Root, "images", key) }

// Save writes uploads as img-<n> files, numbering after the images already
// present so edits append instead of overwriting. Empty parts are ignored.
func (s *Store) Save(key string, files []*multipart.FileHeader) ([]string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return nil, domain.Invalid("key", "is not a valid product key")
	}
	if err := os.MkdirAll(s.dir(key), 0o755); err != nil {
		return nil, err
	}
	existing, err := s.List(key)
	if err != nil {
		return nil, err
	}
	next := len(existing)

	var saved []string
	for _, fh := range files {
		if fh == nil || fh.Size == 0 || fh.Filename == "" {
			continue
		}
		if fh.Size > MaxImageSize {
			return saved, domain.Invalid("images", "must be at most 5 MiB each")
		}
		name, err := s.saveOne(key, fh, next)
		if err != nil {
			return saved, err
		}
		saved = append(saved, name)
		next++
	}
	return saved, nil
}

func (s *Store) saveOne(key string, fh *multipart.FileHeader, index int) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ext, ok := allowedTypes[http.DetectContentType(head[:n])]
	if !ok {
		return "", domain.Invalid("images", "must be jpeg, png, webp or gif")
	}

	name := fmt.Sprintf("img-%d%s", index, ext)
	dst, err := os.OpenFile(filepath.Join(s.dir(key), name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := dst.Write(head[:n]); err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes the named images of key, used to roll back a partial Save.
func (s *Store) Remove(key string, names []string) {
	for _, n := range names {
		_ = os.Remove(filepath.Join(s.dir(key), filepath.Base(n)))
	}
}

// List returns the image file names for key in upload order. A product
// without images yields an empty list.
func (s *Store) List(key string) ([]string, error) {
	entries, err := os.ReadDir(s.dir(key))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "img-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool { return index(names[i]) < index(names[j]) })
	return names, nil
}

// URLs maps image names to their public /media paths.
func (s *Store) URLs(key string) ([]string, error) {
	names, err := s.List(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, "/media/images/"+key+"/"+n)
	}
	return out, nil
}

func index(name string) int {
	n := strings.TrimPrefix(name, "img-")
	n = strings.TrimSuffix(n, filepath.Ext(n))
	i, err := strconv.Atoi(n)
	if err != nil {
		return 1 << 30
	}
	return i
}
