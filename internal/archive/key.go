package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// Key identifies one archived result. The storage path and the index key
// are both derived from it, so repeated writes of the same result land on
// the same location regardless of backend.
// MaxFieldLen bounds each key field so ids fit the index columns.
const MaxFieldLen = 64

type Key struct {
	UserID   string
	TestType string
	TestID   string
	ID       string
}

func (k Key) Validate() error {
	fields := [][2]string{{"id", k.ID}, {"userId", k.UserID}, {"testType", k.TestType}, {"testId", k.TestID}}
	for _, f := range fields {
		name, v := f[0], f[1]
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", name)
		}
		if len(v) > MaxFieldLen {
			return fmt.Errorf("%s is longer than %d bytes", name, MaxFieldLen)
		}
		if strings.ContainsAny(v, `/\`) || v == "." || v == ".." || strings.Contains(v, "\x00") {
			return fmt.Errorf("%s contains illegal characters", name)
		}
	}
	return nil
}

// Path is the backend-relative object path: <testType>/<userId>/<testId>/<id>.json
func (k Key) Path() string {
	return path.Join(k.TestType, k.UserID, k.TestID, k.ID+".json")
}

// Digest is the content-addressed index key for k.
func (k Key) Digest() string {
	h := sha256.New()
	for _, part := range []string{k.UserID, k.TestType, k.TestID, k.ID} {
		// length prefix keeps ("ab","c") and ("a","bc") distinct
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}
