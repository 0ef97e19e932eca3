package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject writes body under objectKey, replacing any existing object.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// payloadNamespace scopes the name-based UUIDs of payloads without a provider id.
var payloadNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("runplan/telemetry"))

// TelemetryKey is the archive key of a raw activity payload. The key depends
// only on its inputs, so archiving the same activity twice overwrites one
// object instead of creating two.
func TelemetryKey(ownerID string, date time.Time, activityID string, raw []byte) string {
	name := sanitizeKeyPart(activityID)
	if name == "" {
		name = uuid.NewSHA1(payloadNamespace, raw).String()
	}
	return fmt.Sprintf("telemetry/%s/%s/%s.json", ownerID, date.UTC().Format("2006-01-02"), name)
}

func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
}
