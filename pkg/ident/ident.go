package ident

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the id namespaces handed out by this package. The
// literal prefix makes a session id and a job id impossible to confuse
// when one shows up in logs or in a sweep.
type Kind string

const (
	KindSession Kind = "session"
	KindJob     Kind = "imgjob"
)

// New returns an id of the form <kind>_<unix-millis>_<random>. Uniqueness
// only needs to hold within one process lifetime; the stores are ephemeral.
func New(kind Kind) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", kind, time.Now().UnixMilli(), suffix)
}

// ParseCreatedAt extracts the creation timestamp embedded in an id.
// Stores keep an explicit CreatedAt field and do not depend on this for
// expiry; it exists for diagnostics and log correlation.
func ParseCreatedAt(id string) (time.Time, bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
