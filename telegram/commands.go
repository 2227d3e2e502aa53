// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

// CmdFunc handles a bot command. Output written to cli.Stdout(ctx) is sent
// back to the user as the reply.
type CmdFunc = cli.CmdFunc

type command struct {
	purpose string
	handler CmdFunc
}

// commandSet is the set of commands served by the bot, keyed by the command
// name without the leading slash.
type commandSet struct {
	mu sync.Mutex

	byName map[string]*command
}

func (cs *commandSet) add(name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || strings.ContainsAny(name, " /@") || len(purpose) == 0 || handler == nil {
		return fmt.Errorf("command %q needs a name, purpose and handler: %w", name, os.ErrInvalid)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.byName == nil {
		cs.byName = make(map[string]*command)
	}
	if _, ok := cs.byName[name]; ok {
		return fmt.Errorf("command %q: %w", name, os.ErrExist)
	}
	cs.byName[name] = &command{purpose: purpose, handler: handler}
	return nil
}

func (cs *commandSet) lookup(name string) (CmdFunc, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cmd, ok := cs.byName[name]
	if !ok {
		return nil, false
	}
	return cmd.handler, true
}

// menu returns the commands in name order as published to telegram.
func (cs *commandSet) menu() []models.BotCommand {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	menu := make([]models.BotCommand, 0, len(cs.byName))
	for name, cmd := range cs.byName {
		menu = append(menu, models.BotCommand{Command: name, Description: cmd.purpose})
	}
	slices.SortFunc(menu, func(a, b models.BotCommand) int {
		return strings.Compare(a.Command, b.Command)
	})
	return menu
}

// publish updates the command menu shown by telegram clients.
func (cs *commandSet) publish(ctx context.Context, b *bot.Bot) error {
	ok, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: cs.menu()})
	if err != nil {
		return fmt.Errorf("could not publish bot commands: %w", err)
	}
	if !ok {
		return fmt.Errorf("telegram has rejected the bot commands")
	}
	return nil
}

// parseCommand splits a message that starts with a bot command into the
// command name and its arguments. Commands addressed as /name@botname in
// group chats are accepted.
func parseCommand(msg *models.Message) (string, []string, error) {
	if msg == nil || len(msg.Entities) == 0 {
		return "", nil, fmt.Errorf("message is not a command: %w", os.ErrInvalid)
	}
	head := msg.Entities[0]
	if head.Type != models.MessageEntityTypeBotCommand || head.Offset != 0 {
		return "", nil, fmt.Errorf("message does not start with a command: %w", os.ErrInvalid)
	}
	if head.Length < 2 || head.Length > len(msg.Text) || msg.Text[0] != '/' {
		return "", nil, fmt.Errorf("command entity is out of range: %w", os.ErrInvalid)
	}
	name, _, _ := strings.Cut(msg.Text[1:head.Length], "@")
	return name, strings.Fields(msg.Text[head.Length:]), nil
}

// run executes the command in the message and returns the reply text.
// Command failures are returned as the reply so that the user sees them.
func (cs *commandSet) run(ctx context.Context, msg *models.Message) string {
	name, args, err := parseCommand(msg)
	if err != nil {
		return ""
	}
	handler, ok := cs.lookup(name)
	if !ok {
		return fmt.Sprintf("Unknown command /%s; try /help", name)
	}
	var sb strings.Builder
	if err := handler(cli.WithStdout(ctx, &sb), args); err != nil {
		return fmt.Sprintf("/%s has failed: %v", name, err)
	}
	return sb.String()
}

func (cs *commandSet) help(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	for _, cmd := range cs.menu() {
		fmt.Fprintf(stdout, "/%s - %s\n", cmd.Command, cmd.Description)
	}
	return nil
}
