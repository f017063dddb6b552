package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"atelier/internal/apperrors"
	"atelier/internal/services"
	"atelier/pkg/media"

	"github.com/gofiber/fiber/v2"
)

func isMultipart(c *fiber.Ctx) bool {
	return bytes.HasPrefix(c.Request().Header.ContentType(), []byte(fiber.MIMEMultipartForm))
}

// bindBody decodes a JSON or form body onto dst. Keys absent from the body
// leave dst untouched, so it serves partial updates too.
func bindBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Validation("Invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

// readFiles collects the uploaded files of the named multipart fields.
// Non-multipart requests carry no files.
func readFiles(c *fiber.Ctx, fields []string, maxSize int64) (services.Files, error) {
	if len(fields) == 0 || !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.Validation("Invalid multipart form", map[string]string{"body": err.Error()})
	}

	files := make(services.Files)
	for _, field := range fields {
		for _, fh := range form.File[field] {
			f, err := readFile(fh, maxSize)
			if err != nil {
				return nil, apperrors.Validation("Invalid file", map[string]string{field: err.Error()})
			}
			files[field] = append(files[field], f)
		}
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) (media.File, error) {
	if maxSize > 0 && fh.Size > maxSize {
		return media.File{}, fmt.Errorf("%s (%d bytes): %w", fh.Filename, fh.Size, media.ErrTooLarge)
	}
	src, err := fh.Open()
	if err != nil {
		return media.File{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return media.File{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

// singleFile returns the first file of field, or nil.
func singleFile(files services.Files, field string) *media.File {
	if batch := files[field]; len(batch) > 0 {
		return &batch[0]
	}
	return nil
}
