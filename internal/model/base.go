package model

import "github.com/google/uuid"

// Models keep string keys so externally issued ids ("r1") and generated
// UUIDs share one column type on postgres and sqlite.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
