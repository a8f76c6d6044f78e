package filemgr

import (
	"errors"
	"time"
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindProof MediaKind = "proof"
)

// Policy is what one kind of upload may look like.
type Policy struct {
	Extensions []string
	MIMEs      []string
	MaxSize    int64
}

const (
	MinVideoDuration = 10 * time.Second
	MaxVideoDuration = 25 * time.Second
)

var (
	Policies = map[MediaKind]Policy{
		KindImage: {
			Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			MIMEs:      []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			MaxSize:    10 << 20,
		},
		KindVideo: {
			Extensions: []string{".mp4", ".webm", ".mov"},
			MIMEs:      []string{"video/mp4", "video/webm", "video/quicktime"},
			MaxSize:    50 << 20,
		},
		KindProof: {
			Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"},
			MIMEs:      []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
			MaxSize:    10 << 20,
		},
	}

	// Subfolders used in shipment object keys.
	Subfolders = map[MediaKind]string{
		KindImage: "images",
		KindVideo: "videos",
	}

	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrInvalidDuration  = errors.New("video duration must be between 10 and 25 seconds")
	ErrMissingFile      = errors.New("no file uploaded")
)
