// Package bot is the chat boundary: it pumps Telegram updates into drop
// events and implements the registration command surface. It contains no
// eligibility or dispatch logic of its own.
package bot

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/97woo/tgbot/internal/drop"
	"github.com/97woo/tgbot/internal/errors"
	"github.com/97woo/tgbot/internal/logging"
	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/telegram"
	"github.com/97woo/tgbot/internal/types"
	"github.com/97woo/tgbot/internal/wallet"
)

// BalanceReader reports the funding wallet's current balance. Optional.
type BalanceReader func(ctx context.Context) (*big.Int, error)

// DropCounter reports a user's all-time drop count from the reporting sink.
// Optional; /info omits the line when no sink is configured.
type DropCounter interface {
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// Config holds the values the command surface reports back to users.
type Config struct {
	Cooldown     time.Duration
	DailyCapWei  *big.Int
	AmountWei    *big.Int
	RolloverHour int
	PollTimeout  time.Duration
	AdminUserID  string // user allowed to run /ban and /unban, empty disables
}

// Bot pumps updates and answers commands.
type Bot struct {
	client      *telegram.Client
	coordinator *drop.Coordinator
	directory   *wallet.Directory
	ledger      *state.SpendLedger
	history     *state.DropHistory
	blacklist   *state.Blacklist
	balance     BalanceReader // may be nil
	counter     DropCounter   // may be nil
	cfg         Config
}

// New creates the bot front end.
func New(
	client *telegram.Client,
	coordinator *drop.Coordinator,
	directory *wallet.Directory,
	ledger *state.SpendLedger,
	history *state.DropHistory,
	blacklist *state.Blacklist,
	balance BalanceReader,
	counter DropCounter,
	cfg Config,
) *Bot {
	return &Bot{
		client:      client,
		coordinator: coordinator,
		directory:   directory,
		ledger:      ledger,
		history:     history,
		blacklist:   blacklist,
		balance:     balance,
		counter:     counter,
		cfg:         cfg,
	}
}

// Run long-polls for updates until ctx is cancelled. Each message is
// handled on its own goroutine; the coordinator's per-user and per-venue
// locks keep the stateful invariants intact, and a retrying dispatch never
// blocks unrelated venues.
func (b *Bot) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Info("Bot update loop started")

	var offset int64
	timeoutSec := int(b.cfg.PollTimeout / time.Second)

	for {
		updates, err := b.client.GetUpdates(ctx, offset, timeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Bot update loop stopped")
				return nil
			}
			logger.WithError(err).Warn("getUpdates failed, backing off")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			msg := update.Message
			go b.handleMessage(ctx, msg)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if name, args, ok := parseCommand(msg.Text); ok {
		b.handleCommand(ctx, msg, name, args)
		return
	}
	if msg.Text == "" {
		return
	}

	ev := types.Event{
		ID:        uuid.NewString(),
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		UserName:  msg.From.DisplayName(),
		VenueID:   strconv.FormatInt(msg.Chat.ID, 10),
		VenueKind: venueKind(msg.Chat.Type),
		Text:      msg.Text,
		At:        time.Unix(msg.Date, 0),
	}
	b.coordinator.Handle(ctx, ev)
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, name, args string) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"command": name,
		"user":    msg.From.ID,
	})

	switch name {
	case "start":
		b.reply(ctx, msg, b.welcomeText())
	case "set":
		b.handleSet(ctx, msg, args)
	case "wallet":
		b.handleWallet(ctx, msg)
	case "remove":
		b.handleRemove(ctx, msg)
	case "info":
		b.handleInfo(ctx, msg)
	case "ban":
		b.handleBan(ctx, msg, args, true)
	case "unban":
		b.handleBan(ctx, msg, args, false)
	default:
		logger.Debug("Ignoring unknown command")
	}
}

// handleBan adds or removes a blacklist entry. Restricted to the configured
// admin; everyone else gets silence, the same as an unknown command.
func (b *Bot) handleBan(ctx context.Context, msg *telegram.Message, args string, ban bool) {
	requester := strconv.FormatInt(msg.From.ID, 10)
	if b.cfg.AdminUserID == "" || requester != b.cfg.AdminUserID {
		logging.FromContext(ctx).WithField("user", requester).Debug("Ignoring ban command from non-admin")
		return
	}

	target := strings.TrimSpace(args)
	if target == "" || strings.ContainsAny(target, " \t") {
		b.reply(ctx, msg, "❌ Usage: /ban <user_id> or /unban <user_id>")
		return
	}

	var err error
	if ban {
		err = b.blacklist.Add(ctx, target)
	} else {
		err = b.blacklist.Remove(ctx, target)
	}
	if err != nil {
		logging.FromContext(ctx).WithError(err).Error("Blacklist update failed")
		b.reply(ctx, msg, "❌ Blacklist update failed, please try again later.")
		return
	}

	if ban {
		b.reply(ctx, msg, fmt.Sprintf("✅ User %s is now blacklisted.", target))
	} else {
		b.reply(ctx, msg, fmt.Sprintf("✅ User %s removed from the blacklist.", target))
	}
}

func (b *Bot) handleSet(ctx context.Context, msg *telegram.Message, args string) {
	// Registration stays out of groups so an address is never broadcast by
	// accident.
	if venueKind(msg.Chat.Type) != types.VenuePrivate {
		b.reply(ctx, msg, "❌ Register your wallet in a private chat with the bot, not in a group.")
		return
	}

	addr := parseAddressArg(args)
	if addr == "" {
		b.reply(ctx, msg, "❌ Usage: /set 0x1234...")
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	if err := b.directory.Set(ctx, userID, addr); err != nil {
		if errors.CategoryOf(err) == errors.CategoryValidation {
			b.reply(ctx, msg, "❌ That is not a valid wallet address. Check the checksum and try again.")
			return
		}
		logging.FromContext(ctx).WithError(err).Error("Wallet registration failed")
		b.reply(ctx, msg, "❌ Registration failed, please try again later.")
		return
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"user": userID,
	}).Info("Wallet registered")
	b.reply(ctx, msg, "✅ Wallet registered!")
}

func (b *Bot) handleWallet(ctx context.Context, msg *telegram.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	if addr, ok := b.directory.Get(userID); ok {
		b.reply(ctx, msg, fmt.Sprintf("💳 Registered wallet: %s", addr.Hex()))
		return
	}
	b.reply(ctx, msg, "❌ No wallet registered. Use /set to register one.")
}

func (b *Bot) handleRemove(ctx context.Context, msg *telegram.Message) {
	if venueKind(msg.Chat.Type) != types.VenuePrivate {
		b.reply(ctx, msg, "❌ Manage your wallet in a private chat with the bot.")
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	removed, err := b.directory.Remove(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Error("Wallet removal failed")
		b.reply(ctx, msg, "❌ Removal failed, please try again later.")
		return
	}
	if !removed {
		b.reply(ctx, msg, "❌ No wallet registered.")
		return
	}
	b.reply(ctx, msg, "✅ Wallet removed.")
}

func (b *Bot) handleInfo(ctx context.Context, msg *telegram.Message) {
	period := state.PeriodKey(time.Now(), b.cfg.RolloverHour)
	spent := b.ledger.Spent(period)

	text := fmt.Sprintf(`📊 Bot status:

🎲 Drop odds: secret 🤫
💰 Daily cap: %s RBTC
📈 Sent today: %s RBTC
👥 Registered wallets: %d
🎁 Drops all time: %d
⏰ Cooldown: %ds

🌐 Chain: Rootstock Network`,
		types.FormatRBTC(b.cfg.DailyCapWei),
		types.FormatRBTC(spent),
		b.directory.Count(),
		b.history.Len(),
		int(b.cfg.Cooldown/time.Second),
	)

	if b.balance != nil {
		if bal, err := b.balance(ctx); err == nil {
			text += fmt.Sprintf("\n🏦 Funding balance: %s RBTC", types.FormatRBTC(bal))
		}
	}
	if b.counter != nil {
		userID := strconv.FormatInt(msg.From.ID, 10)
		if n, err := b.counter.CountForUser(ctx, userID); err == nil {
			text += fmt.Sprintf("\n🏆 Your drops: %d", n)
		}
	}

	b.reply(ctx, msg, text)
}

func (b *Bot) welcomeText() string {
	return fmt.Sprintf(`🎯 Welcome to the RSK RBTC drop bot!

💰 Commands:
• /set 0x... - register your wallet (private chat only)
• /wallet - show your registered wallet
• /remove - remove your wallet
• /info - bot status

🎲 RBTC airdrop:
• Chat messages in groups can trigger a random drop
• Drop size: %s RBTC
• Daily cap: %s RBTC
• Cooldown: %ds

💡 Register with /set to take part!`,
		types.FormatRBTC(b.cfg.AmountWei),
		types.FormatRBTC(b.cfg.DailyCapWei),
		int(b.cfg.Cooldown/time.Second),
	)
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	if err := b.client.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Reply delivery failed")
	}
}

func venueKind(chatType string) types.VenueKind {
	switch chatType {
	case "private":
		return types.VenuePrivate
	case "group":
		return types.VenueGroup
	case "supergroup":
		return types.VenueSupergroup
	case "channel":
		return types.VenueChannel
	default:
		return types.VenueGroup
	}
}
