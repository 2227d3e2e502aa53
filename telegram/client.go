// Copyright (c) 2025 BVK Chaitanya

// Package telegram runs a telegram bot that delivers job alerts to the
// configured users and serves a small set of job control commands.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/bvk/makerbot/ctxutil"
	"github.com/bvk/makerbot/gobs"
	"github.com/bvk/makerbot/kvutil"
	"github.com/bvkgo/kv"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

// ErrNoChat is returned when none of the users has a known chat with the bot.
var ErrNoChat = errors.New("no user has started a chat with the bot")

type Client struct {
	cg ctxutil.CloseGroup

	db      kv.Database
	bot     *bot.Bot
	botName string
	secrets *Secrets
	started time.Time

	cmds commandSet

	mu    sync.Mutex
	chats *gobs.TelegramState
}

// New authenticates with telegram using the bot token, restores the known
// chat ids from the database and starts polling for user commands.
func New(ctx context.Context, db kv.Database, secrets *Secrets) (_ *Client, status error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:      db,
		secrets: secrets.Clone(),
		started: time.Now(),
	}
	b, err := bot.New(c.secrets.BotToken, bot.WithDefaultHandler(c.onUpdate))
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	defer func() {
		if status != nil {
			b.Close(ctx)
		}
	}()
	c.bot = b

	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not authenticate the bot token: %w", err)
	}
	c.botName = me.Username

	chats, err := kvutil.GetDB[gobs.TelegramState](ctx, db, c.stateKey())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		chats = &gobs.TelegramState{}
	}
	if chats.UserChatIDMap == nil {
		chats.UserChatIDMap = make(map[string]int64)
	}
	c.chats = chats

	if err := c.cmds.add("help", "Lists the bot commands", c.cmds.help); err != nil {
		return nil, err
	}
	if err := c.cmds.add("uptime", "Prints how long the server has been running", c.uptime); err != nil {
		return nil, err
	}
	if err := c.cmds.publish(ctx, b); err != nil {
		return nil, err
	}

	c.cg.Go(b.Start)
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.botName
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

func (c *Client) stateKey() string {
	return path.Join("/makerbot/telegram", c.botName, "state")
}

// AddCommand registers a command handler and republishes the command menu.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if err := c.cmds.add(name, purpose, handler); err != nil {
		return err
	}
	return c.cmds.publish(ctx, c.bot)
}

// SendMessage delivers an alert to every user with a known chat. Users who
// never messaged the bot are skipped. It fails only when the alert could not
// be delivered to anyone.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	targets := c.chatIDs()
	if len(targets) == 0 {
		return ErrNoChat
	}
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text

	var errs []error
	for user, chatID := range targets {
		if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: msg}); err != nil {
			slog.WarnContext(ctx, "could not send telegram alert", "user", user, "err", err)
			errs = append(errs, fmt.Errorf("user %s: %w", user, err))
		}
	}
	if len(errs) == len(targets) {
		return errors.Join(errs...)
	}
	return nil
}

// chatIDs returns the chat ids of the configured users.
func (c *Client) chatIDs() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make(map[string]int64)
	for _, user := range c.secrets.Users() {
		if id, ok := c.chats.UserChatIDMap[user]; ok {
			ids[user] = id
		}
	}
	return ids
}

// rememberChat records the chat id for the user and reports whether it has
// changed.
func (c *Client) rememberChat(user string, chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.chats.UserChatIDMap[user]; ok && old == chatID {
		return false
	}
	c.chats.UserChatIDMap[user] = chatID
	return true
}

func (c *Client) saveChats(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return kvutil.SetDB(ctx, c.db, c.stateKey(), c.chats)
}

func (c *Client) isAuthorized(user string) bool {
	return slices.Contains(c.secrets.Users(), user)
}

func (c *Client) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	user := msg.From.Username
	if !c.isAuthorized(user) {
		slog.WarnContext(ctx, "ignoring telegram message from unauthorized user", "user", user)
		return
	}

	if c.rememberChat(user, msg.Chat.ID) {
		slog.InfoContext(ctx, "learned telegram chat id", "user", user, "chat", msg.Chat.ID)
		if err := c.saveChats(ctx); err != nil {
			slog.WarnContext(ctx, "could not save telegram chat ids (ignored)", "err", err)
		}
	}

	reply := c.cmds.run(ctx, msg)
	if len(reply) == 0 {
		return
	}
	disabled := true
	params := &bot.SendMessageParams{
		ChatID:             msg.Chat.ID,
		Text:               reply,
		ReplyParameters:    &models.ReplyParameters{MessageID: msg.ID},
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		slog.WarnContext(ctx, "could not reply to telegram command", "user", user, "err", err)
	}
}

func (c *Client) uptime(ctx context.Context, _ []string) error {
	d := time.Since(c.started).Round(time.Second)
	if days := d / (24 * time.Hour); days > 0 {
		fmt.Fprintf(cli.Stdout(ctx), "up %dd%v", days, d%(24*time.Hour))
		return nil
	}
	fmt.Fprintf(cli.Stdout(ctx), "up %v", d)
	return nil
}
