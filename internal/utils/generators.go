package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateTransferID creates an identifier for a token-transfer notification.
// The token service normally assigns these; tooling and tests use this.
func GenerateTransferID() string {
	return fmt.Sprintf("txn_%d_%s", time.Now().Unix(), uuid.New().String())
}

// GenerateRequestID creates a correlation ID for API request logging.
func GenerateRequestID() string {
	return uuid.New().String()
}
