// Copyright (c) 2025 BVK Chaitanya

package gobs

type TelegramState struct {
	// UserChatIDMap maps authorized user names to their chat ids. Chat ids are
	// learned when the user first messages the bot.
	UserChatIDMap map[string]int64
}
