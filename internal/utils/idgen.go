package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds a collision-resistant recurring-order number, e.g.
// "RO-20240301153045-1a2b3c4d": a UTC timestamp plus a random suffix.
func NewOrderNumber() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("RO-%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}
