// Package filestore keeps booking photos in a local directory.
package filestore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	dir        string
	publicBase string
}

// New creates dir if needed. Stored photos are addressed as
// <publicBase>/<booking_no>.jpg, or as file urls when publicBase is empty.
func New(dir, publicBase string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("photo dir: %w", err)
	}
	err = os.MkdirAll(abs, 0777)
	if err != nil {
		return nil, fmt.Errorf("photo dir: %w", err)
	}
	return &Store{dir: abs, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func objectName(bookingNo string) string {
	return filepath.Base(bookingNo) + ".jpg"
}

func (s *Store) Path(bookingNo string) string {
	return filepath.Join(s.dir, objectName(bookingNo))
}

func (s *Store) PublicURL(bookingNo string) string {
	if s.publicBase == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(s.Path(bookingNo))}).String()
	}
	return s.publicBase + "/" + url.PathEscape(objectName(bookingNo))
}

// PutPhoto writes the photo through a temporary file so readers never see a
// partial image, an existing photo is replaced.
func (s *Store) PutPhoto(ctx context.Context, bookingNo string, data []byte, _ string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("put photo of %s: %w", bookingNo, err)
	}
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.Path(bookingNo))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("put photo of %s: %w", bookingNo, err)
	}
	return s.PublicURL(bookingNo), nil
}
