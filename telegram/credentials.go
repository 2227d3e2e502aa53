// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Secrets holds the bot token and the telegram user names allowed to control
// the makerbot server. Alerts are delivered to all of the users.
type Secrets struct {
	BotToken string

	OwnerID string

	OtherIDs []string
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("bot token cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.OwnerID) == 0 {
		return fmt.Errorf("owner id cannot be empty: %w", os.ErrInvalid)
	}
	for _, id := range v.Users() {
		if len(id) == 0 || strings.HasPrefix(id, "@") {
			return fmt.Errorf("user id %q must be a non-empty user name without the @ prefix: %w", id, os.ErrInvalid)
		}
	}
	if slices.Contains(v.OtherIDs, v.OwnerID) {
		return fmt.Errorf("owner id should not be repeated in other ids: %w", os.ErrInvalid)
	}
	return nil
}

// Users returns the owner followed by other users.
func (v *Secrets) Users() []string {
	return append([]string{v.OwnerID}, v.OtherIDs...)
}

func (v *Secrets) Clone() *Secrets {
	return &Secrets{
		BotToken: v.BotToken,
		OwnerID:  v.OwnerID,
		OtherIDs: slices.Clone(v.OtherIDs),
	}
}
