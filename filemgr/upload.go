package filemgr

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"tradedesk/utils"
)

// Upload is a validated file held in memory, ready for the blob store.
type Upload struct {
	Filename    string
	Kind        MediaKind
	Ext         string
	ContentType string
	Data        []byte
}

func (u *Upload) Size() int64 { return int64(len(u.Data)) }

// Validate checks extension, size and sniffed MIME type against the kind's policy
// and reads the whole file.
func Validate(header *multipart.FileHeader, kind MediaKind) (*Upload, error) {
	p, ok := Policies[kind]
	if !ok {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	return ValidateWith(header, kind, p)
}

func ValidateWith(header *multipart.FileHeader, kind MediaKind, p Policy) (*Upload, error) {
	name := utils.SanitizeFilename(header.Filename)
	ext := utils.Ext(name)
	if !isExtensionAllowed(ext, p) {
		return nil, fmt.Errorf("%w: %s for %s", ErrInvalidExtension, ext, kind)
	}
	if p.MaxSize > 0 && header.Size > p.MaxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, p.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if p.MaxSize > 0 && int64(len(data)) > p.MaxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
	}

	mimeType := http.DetectContentType(data)
	if mimeType == "application/octet-stream" {
		if formMime := header.Header.Get("Content-Type"); formMime != "" {
			mimeType = formMime
		}
	}
	if !isMIMEAllowed(mimeType, p) {
		return nil, fmt.Errorf("%w: %s for %s", ErrInvalidMIME, mimeType, kind)
	}

	return &Upload{
		Filename:    name,
		Kind:        kind,
		Ext:         ext,
		ContentType: mimeType,
		Data:        data,
	}, nil
}

// ValidateAll validates every file under formKey. All must pass.
func ValidateAll(form *multipart.Form, formKey string, kind MediaKind) ([]*Upload, error) {
	var out []*Upload
	for _, hdr := range form.File[formKey] {
		u, err := Validate(hdr, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Reader exposes the payload for streaming uploads.
func (u *Upload) Reader() io.Reader {
	return bytes.NewReader(u.Data)
}
