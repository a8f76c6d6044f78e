package filemgr

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

func isExtensionAllowed(ext string, p Policy) bool {
	return slices.Contains(p.Extensions, ext)
}

func isMIMEAllowed(mimeType string, p Policy) bool {
	// drop parameters such as "; charset=utf-8"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return slices.Contains(p.MIMEs, strings.TrimSpace(mimeType))
}

// CheckDuration validates a client-reported video length.
func CheckDuration(d time.Duration) error {
	if d < MinVideoDuration || d > MaxVideoDuration {
		return fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}
	return nil
}

// ShipmentObjectKey is shipment-<id>/<images|videos>/<uuid>.<ext>.
func ShipmentObjectKey(shipmentID string, kind MediaKind, ext string) string {
	sub := Subfolders[kind]
	if sub == "" {
		sub = "misc"
	}
	return fmt.Sprintf("shipment-%s/%s/%s%s", shipmentID, sub, uuid.New().String(), ext)
}

// ProofObjectKey is payment_proof_<paymentId>_<unix>.<ext>.
func ProofObjectKey(paymentID string, ext string, now time.Time) string {
	return fmt.Sprintf("payment_proof_%s_%d%s", paymentID, now.Unix(), ext)
}
