package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var errNoFile = errors.New("no file provided")

// readUpload returns the bytes and client file name of the uploaded image.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", errNoFile
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	return data, header.Filename, nil
}
