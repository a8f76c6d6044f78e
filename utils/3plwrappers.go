package utils

import (
	"strings"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// NewReference returns a human-readable code such as "ORD-5F3A9C1B".
func NewReference(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:8])
}
