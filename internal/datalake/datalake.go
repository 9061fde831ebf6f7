// Package datalake locates book files in the document store populated by the
// fetcher: a two-level bucket directory tree whose leaf directories hold
// header_{id}.txt and body_{id}.txt pairs.
package datalake

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
)

const (
	headerPrefix = "header_"
	bodyPrefix   = "body_"
	fileSuffix   = ".txt"
)

// Lake reads the bucket tree under a fixed root.
type Lake struct {
	root string
}

// New returns a Lake rooted at the given directory.
func New(root string) *Lake {
	return &Lake{root: root}
}

// FindBookFiles walks the two bucket levels looking for the book's header and
// body pair. It returns ErrBookNotFound when no leaf directory holds both.
func (l *Lake) FindBookFiles(bookID uint32) (headerPath, bodyPath string, err error) {
	header := fmt.Sprintf("%s%d%s", headerPrefix, bookID, fileSuffix)
	body := fmt.Sprintf("%s%d%s", bodyPrefix, bookID, fileSuffix)

	err = l.eachLeafDir(func(dir string) bool {
		h := filepath.Join(dir, header)
		b := filepath.Join(dir, body)
		if fileExists(h) && fileExists(b) {
			headerPath, bodyPath = h, b
			return false
		}
		return true
	})
	if err != nil {
		return "", "", err
	}
	if headerPath == "" {
		return "", "", apperrors.Newf(apperrors.ErrBookNotFound, http.StatusNotFound, "book %d files not found", bookID)
	}
	return headerPath, bodyPath, nil
}

// WalkHeaders visits every header file in the tree, reporting the book id
// parsed from its filename. Files that do not match the naming convention
// are skipped. The walk is synchronous and runs to completion.
func (l *Lake) WalkHeaders(visit func(bookID uint32)) error {
	return l.eachLeafDir(func(dir string) bool {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return true
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, headerPrefix) || !strings.HasSuffix(name, fileSuffix) {
				continue
			}
			idStr := strings.TrimSuffix(strings.TrimPrefix(name, headerPrefix), fileSuffix)
			id, err := strconv.ParseUint(idStr, 10, 32)
			if err != nil {
				continue
			}
			visit(uint32(id))
		}
		return true
	})
}

// eachLeafDir calls fn for every second-level directory under the root.
// Returning false from fn stops the walk early.
func (l *Lake) eachLeafDir(fn func(dir string) bool) error {
	buckets, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.Newf(apperrors.ErrIO, http.StatusInternalServerError, "datalake root %s missing", l.root)
		}
		return fmt.Errorf("reading datalake root %s: %w", l.root, err)
	}
	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		bucketPath := filepath.Join(l.root, bucket.Name())
		shards, err := os.ReadDir(bucketPath)
		if err != nil {
			continue
		}
		for _, shard := range shards {
			if !shard.IsDir() {
				continue
			}
			if !fn(filepath.Join(bucketPath, shard.Name())) {
				return nil
			}
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
