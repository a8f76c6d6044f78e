package filemgr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Reencode decodes JPEG and PNG uploads with EXIF orientation applied and
// encodes them again, which drops all embedded metadata. Other formats are
// left untouched.
func Reencode(u *Upload) error {
	var format imaging.Format
	switch u.ContentType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", u.Filename, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("encode %s: %w", u.Filename, err)
	}
	u.Data = buf.Bytes()
	return nil
}
