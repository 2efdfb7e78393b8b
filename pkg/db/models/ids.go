package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller did not supply one. Ids are minted
// in Go rather than by a column default so sqlite and postgres behave alike.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
