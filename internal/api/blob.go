package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobInfo: что записано в хранилище.
type BlobInfo struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type BlobStore interface {
	Put(key string, r io.Reader) (BlobInfo, error)
	Delete(key string) error
	Path(key string) (string, error) // локальный путь к файлу
}

// LocalBlobStore хранит файлы в каталоге на диске.
type LocalBlobStore struct {
	Root string // например, "./exports"
}

// cleanKey не даёт ключу выйти за пределы Root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, `\`, "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("blob key %q is empty", key)
	}
	return k, nil
}

func (s *LocalBlobStore) full(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(k)), nil
}

// Put пишет файл через временный и переименовывает, чтобы читатели не видели половину.
func (s *LocalBlobStore) Put(key string, r io.Reader) (BlobInfo, error) {
	full, err := s.full(key)
	if err != nil {
		return BlobInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return BlobInfo{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return BlobInfo{}, err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return BlobInfo{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return BlobInfo{}, err
	}
	k, _ := cleanKey(key)
	return BlobInfo{Key: k, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *LocalBlobStore) Delete(key string) error {
	full, err := s.full(key)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (s *LocalBlobStore) Path(key string) (string, error) {
	return s.full(key)
}
