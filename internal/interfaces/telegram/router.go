package telegraminterface

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	addUsage    = "Usage: /add <buyer> <seller> <amount>, or reply to a deal form with /add"
	doneUsage   = "Usage: /done <#id>, or reply to a receipt with /done"
	refundUsage = "Usage: /refund <#id>, or reply to a receipt with /refund"
	tradeUsage  = "Usage: /trade <#id>"
	adminUsage  = "Usage: /%s <user id>, or reply to a message of the user"

	onlyAdmins      = "❌ Only admins can use this command."
	onlyOwners      = "❌ Only owners can manage admins."
	tradeNotFound   = "❌ Trade not found."
	alreadyFinal    = "⚠️ This trade is already completed or refunded."
	invalidAmount   = "❌ Invalid amount."
	missingParty    = "❌ Buyer and seller are required."
	persistWarning  = "⚠️ The ledger could not be saved. The change is kept in memory only."
	somethingFailed = "❌ Something went wrong, please retry."
	unknownCommand  = "❓ Unknown command. Send /start for the list of commands."
)

// RouterConfig holds the presentation settings of the router.
type RouterConfig struct {
	BotUsername string
	LogChannel  Recipient
	Currency    string
	DMFooter    string
}

// Router turns inbound chat messages into escrow operations and delivers
// the resulting receipts. Delivery failures are logged and never affect
// the ledger.
type Router struct {
	svc       application.EscrowService
	messenger Messenger
	directory *Directory
	cfg       RouterConfig
	view      formatter
}

func NewRouter(
	svc application.EscrowService,
	messenger Messenger,
	directory *Directory,
	cfg RouterConfig,
) *Router {
	if directory == nil {
		directory = NewDirectory()
	}
	return &Router{
		svc:       svc,
		messenger: messenger,
		directory: directory,
		cfg:       cfg,
		view:      formatter{currency: cfg.Currency},
	}
}

// HandleMessage processes one inbound message. Messages that are not bot
// commands only feed the directory.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	r.directory.Learn(msg.From)
	if msg.ReplyTo != nil {
		r.directory.Learn(msg.ReplyTo.From)
	}

	cmd, ok := parseCommand(msg.Text)
	if !ok || !cmd.isFor(r.cfg.BotUsername) {
		return
	}

	log.WithFields(log.Fields{
		"command": cmd.String(),
		"chat_id": msg.ChatID,
		"user_id": msg.From.ID,
	}).Debug("routing command")

	switch cmd.name {
	case "start":
		r.start(ctx, msg)
	case "add":
		r.addTrade(ctx, msg, cmd)
	case "done":
		r.finalizeTrade(ctx, msg, cmd, false)
	case "refund":
		r.finalizeTrade(ctx, msg, cmd, true)
	case "trade":
		r.showTrade(ctx, msg, cmd)
	case "mystats":
		r.myStats(ctx, msg)
	case "mytrades":
		r.myTrades(ctx, msg)
	case "stats":
		r.reply(ctx, msg, r.view.chatStats(r.svc.GetChatStats(msg.ChatID)))
	case "gstats":
		if !r.svc.IsAdmin(msg.From.ID) {
			r.reply(ctx, msg, "❌ Only admins can view global stats.")
			return
		}
		r.reply(ctx, msg, r.view.globalStats(r.svc.GetGlobalStats()))
	case "summary":
		if !r.svc.IsAdmin(msg.From.ID) {
			r.reply(ctx, msg, "❌ Only admins can view the summary.")
			return
		}
		r.reply(ctx, msg, r.view.adminSummary(r.svc.GetAdminSummary()))
	case "hold":
		if !r.svc.IsAdmin(msg.From.ID) {
			r.reply(ctx, msg, onlyAdmins)
			return
		}
		count := r.svc.GetHoldCount(msg.From.ID)
		r.reply(ctx, msg, fmt.Sprintf("📦 You have %d trades on hold.", count))
	case "addadmin":
		r.addAdmin(ctx, msg, cmd)
	case "removeadmin":
		r.removeAdmin(ctx, msg, cmd)
	case "removeadmins":
		r.clearAdmins(ctx, msg)
	case "admins":
		r.reply(ctx, msg, adminList(r.svc.ListAdmins()))
	default:
		r.reply(ctx, msg, unknownCommand)
	}
}

func (r *Router) start(ctx context.Context, msg Message) {
	r.reply(ctx, msg, strings.Join([]string{
		fmt.Sprintf("👋 Hi %s, I keep the records of the escrowed deals of this group.", msg.From.DisplayName()),
		"",
		"Admins:",
		"/add <buyer> <seller> <amount> - record a payment (reply to a deal form works too)",
		"/done <#id> - complete a deal",
		"/refund <#id> - refund a deal",
		fmt.Sprintf("Append +fee to charge the %s fee (ie. /add+fee).", feeLabel(r.svc.FeePolicy())),
		"/gstats /summary /hold - admin stats",
		"",
		"Everyone:",
		"/trade <#id> /mystats /mytrades /stats /admins",
	}, "\n"))
}

func (r *Router) addTrade(ctx context.Context, msg Message, cmd *command) {
	req := application.TradeRequest{
		WithFee:         cmd.withFee,
		ChatID:          msg.ChatID,
		OriginMessageID: msg.ID,
	}

	switch {
	case len(cmd.args) >= 3:
		amount, err := parseAmount(strings.Join(cmd.args[2:], ""))
		if err != nil {
			r.reply(ctx, msg, invalidAmount)
			return
		}
		req.Buyer, req.Seller, req.Amount = cmd.args[0], cmd.args[1], amount
	case msg.ReplyTo != nil:
		form, err := ParseDealForm(msg.ReplyTo.Text)
		if err != nil {
			if errors.Is(err, ErrIncompleteForm) {
				r.reply(ctx, msg, addUsage)
				return
			}
			r.reply(ctx, msg, invalidAmount)
			return
		}
		req.Buyer, req.Seller, req.Amount = form.Buyer, form.Seller, form.Amount
		req.OriginMessageID = msg.ReplyTo.ID
	default:
		r.reply(ctx, msg, addUsage)
		return
	}

	trade, err := r.svc.CreateTrade(ctx, msg.From.ID, req)
	if trade == nil {
		r.replyError(ctx, msg, err, onlyAdmins)
		return
	}

	receipt := r.view.paymentReceived(trade)
	r.send(ctx, ChatRecipient(msg.ChatID), receipt, trade.OriginMessageID)
	r.copyToLogChannel(ctx, "Payment Received", receipt)
	r.notifyParticipants(ctx, trade, receipt)
	if err != nil {
		r.replyError(ctx, msg, err, onlyAdmins)
	}
}

func (r *Router) finalizeTrade(
	ctx context.Context, msg Message, cmd *command, refund bool,
) {
	usage := doneUsage
	if refund {
		usage = refundUsage
	}
	id, ok := r.tradeRef(msg, cmd)
	if !ok {
		r.reply(ctx, msg, usage)
		return
	}

	var (
		trade *domain.Trade
		err   error
	)
	if refund {
		trade, err = r.svc.RefundTrade(ctx, msg.From.ID, id, cmd.withFee)
	} else {
		trade, err = r.svc.CompleteTrade(ctx, msg.From.ID, id, cmd.withFee)
	}
	if trade == nil {
		r.replyError(ctx, msg, err, onlyAdmins)
		return
	}

	title, receipt := "Deal Completed", r.view.dealCompleted(trade, msg.From)
	if refund {
		title, receipt = "Refund Completed", r.view.refundCompleted(trade, msg.From)
	}
	r.reply(ctx, msg, receipt)
	r.copyToLogChannel(ctx, title, receipt)
	r.notifyParticipants(ctx, trade, receipt)
	if err != nil {
		r.replyError(ctx, msg, err, onlyAdmins)
	}
}

func (r *Router) showTrade(ctx context.Context, msg Message, cmd *command) {
	id, ok := r.tradeRef(msg, cmd)
	if !ok {
		r.reply(ctx, msg, tradeUsage)
		return
	}
	trade, err := r.svc.GetTrade(id)
	if err != nil {
		r.replyError(ctx, msg, err, onlyAdmins)
		return
	}
	handle, alias := identifiers(msg.From)
	if !r.svc.IsAdmin(msg.From.ID) && !trade.HasParticipant(handle, alias) {
		r.reply(ctx, msg, "❌ You can only view your own trades.")
		return
	}
	r.reply(ctx, msg, r.view.tradeDetails(trade))
}

func (r *Router) myStats(ctx context.Context, msg Message) {
	handle, alias := identifiers(msg.From)
	stats := domain.UserStats{Amount: decimal.Zero}
	for _, identifier := range []string{handle, alias} {
		if identifier == "" {
			continue
		}
		s := r.svc.GetUserStats(identifier)
		stats.Deals += s.Deals
		stats.Amount = stats.Amount.Add(s.Amount)
	}

	var open int
	for trade := range r.svc.ListTradesByParticipant(handle, alias) {
		if trade.IsOpen() {
			open++
		}
	}
	r.reply(ctx, msg, r.view.userStats(stats, open))
}

func (r *Router) myTrades(ctx context.Context, msg Message) {
	handle, alias := identifiers(msg.From)
	trades := slices.Collect(r.svc.ListTradesByParticipant(handle, alias))
	if len(trades) <= 0 {
		r.reply(ctx, msg, "📋 No deals found for you.")
		return
	}
	r.reply(ctx, msg, r.view.tradeList(msg.From.Mention(), trades))
}

func (r *Router) addAdmin(ctx context.Context, msg Message, cmd *command) {
	target, ok := adminTarget(msg, cmd)
	if !ok {
		r.reply(ctx, msg, fmt.Sprintf(adminUsage, "addadmin"))
		return
	}
	added, err := r.svc.AddAdmin(ctx, msg.From.ID, target)
	if err != nil && !errors.Is(err, application.ErrPersistenceWriteFailed) {
		r.replyError(ctx, msg, err, onlyOwners)
		return
	}
	if !added {
		r.reply(ctx, msg, fmt.Sprintf("ℹ️ %d is already an admin.", target))
		return
	}
	r.reply(ctx, msg, fmt.Sprintf("✅ Admin added: %d", target))
	if err != nil {
		r.replyError(ctx, msg, err, onlyOwners)
	}
}

func (r *Router) removeAdmin(ctx context.Context, msg Message, cmd *command) {
	target, ok := adminTarget(msg, cmd)
	if !ok {
		r.reply(ctx, msg, fmt.Sprintf(adminUsage, "removeadmin"))
		return
	}
	removed, err := r.svc.RemoveAdmin(ctx, msg.From.ID, target)
	if err != nil && !errors.Is(err, application.ErrPersistenceWriteFailed) {
		r.replyError(ctx, msg, err, onlyOwners)
		return
	}
	if !removed {
		r.reply(ctx, msg, fmt.Sprintf("ℹ️ %d is not an admin.", target))
		return
	}
	r.reply(ctx, msg, fmt.Sprintf("✅ Admin removed: %d", target))
	if err != nil {
		r.replyError(ctx, msg, err, onlyOwners)
	}
}

func (r *Router) clearAdmins(ctx context.Context, msg Message) {
	err := r.svc.ClearAdmins(ctx, msg.From.ID)
	if err != nil && !errors.Is(err, application.ErrPersistenceWriteFailed) {
		r.replyError(ctx, msg, err, onlyOwners)
		return
	}
	r.reply(ctx, msg, "✅ All admins removed.")
	if err != nil {
		r.replyError(ctx, msg, err, onlyOwners)
	}
}

// tradeRef returns the trade id given as first argument or, if missing,
// referenced by the replied message.
func (r *Router) tradeRef(msg Message, cmd *command) (uint64, bool) {
	if len(cmd.args) > 0 {
		return parseTradeArg(cmd.args[0])
	}
	if msg.ReplyTo != nil {
		return ParseTradeRef(msg.ReplyTo.Text)
	}
	return 0, false
}

func (r *Router) replyError(
	ctx context.Context, msg Message, err error, denial string,
) {
	var text string
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		text = denial
	case errors.Is(err, domain.ErrTradeNotFound):
		text = tradeNotFound
	case errors.Is(err, domain.ErrAlreadyTerminal):
		text = alreadyFinal
	case errors.Is(err, domain.ErrInvalidAmount):
		text = invalidAmount
	case errors.Is(err, domain.ErrMissingParticipant):
		text = missingParty
	case errors.Is(err, application.ErrPersistenceWriteFailed):
		log.WithError(err).Error("ledger change not persisted")
		text = persistWarning
	default:
		log.WithError(err).Warn("unexpected error while handling command")
		text = somethingFailed
	}
	r.reply(ctx, msg, text)
}

func (r *Router) reply(ctx context.Context, msg Message, text string) {
	r.send(ctx, ChatRecipient(msg.ChatID), text, msg.ID)
}

func (r *Router) copyToLogChannel(ctx context.Context, title, text string) {
	if r.cfg.LogChannel.IsZero() {
		return
	}
	r.send(ctx, r.cfg.LogChannel, logCopy(title, text), 0)
}

// notifyParticipants sends the receipt by DM to buyer and seller, if the
// bot knows how to reach them.
func (r *Router) notifyParticipants(
	ctx context.Context, trade *domain.Trade, text string,
) {
	text = withFooter(text, r.cfg.DMFooter)
	notified := make(map[int64]struct{})
	for _, participant := range []string{trade.Buyer, trade.Seller} {
		chatID, ok := r.directory.Lookup(participant)
		if !ok {
			log.WithField("participant", participant).Debug(
				"skipping DM to unknown participant",
			)
			continue
		}
		if _, ok := notified[chatID]; ok {
			continue
		}
		notified[chatID] = struct{}{}
		r.send(ctx, ChatRecipient(chatID), text, 0)
	}
}

func (r *Router) send(ctx context.Context, to Recipient, text string, replyTo int) {
	if err := r.messenger.Send(ctx, to, text, replyTo); err != nil {
		log.WithError(err).WithField("recipient", to.String()).Warn(
			"failed to deliver message",
		)
	}
}

func adminTarget(msg Message, cmd *command) (int64, bool) {
	if len(cmd.args) > 0 {
		return parseUserID(cmd.args[0])
	}
	if msg.ReplyTo != nil && msg.ReplyTo.From.ID > 0 {
		return msg.ReplyTo.From.ID, true
	}
	return 0, false
}

// identifiers returns the @handle and the numeric id of the user, the two
// ways a participant can be recorded in a trade.
func identifiers(u User) (string, string) {
	alias := strconv.FormatInt(u.ID, 10)
	if handle := u.Handle(); handle != "" {
		return handle, alias
	}
	return alias, ""
}
