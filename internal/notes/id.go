package notes

import (
	"fmt"

	"github.com/google/uuid"
)

type publicIDProvider struct{}

// NewPublicIDProvider constructs an IDProvider that issues time-ordered
// UUIDv7 note public ids.
func NewPublicIDProvider() IDProvider {
	return publicIDProvider{}
}

func (publicIDProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("notes: public id generation failed: %w", err)
	}
	return value.String(), nil
}
