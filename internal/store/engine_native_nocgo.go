//go:build !cgo

package store

import (
	"database/sql"
	"fmt"
)

// openNative reports the native engine as unavailable in non-CGO builds.
// The portable engine is pure Go and remains usable.
func openNative(_ string) (*sql.DB, error) {
	return nil, fmt.Errorf("%w: native engine requires a CGO build", ErrEngineUnavailable)
}
