package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"vipclub-bot/internal/catalog"
	"vipclub-bot/internal/models"
	"vipclub-bot/internal/payment"
	"vipclub-bot/internal/responses"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/subscription"
	"vipclub-bot/internal/users"
)

type Bot struct {
	Instance  *telego.Bot
	Users     *users.Service
	Payments  *payment.Service
	Gateway   *payment.Client
	Manager   *subscription.Manager
	Catalog   *catalog.Catalog
	Responses *responses.Service
	Store     store.Store
}

func NewBot(token string, usersSvc *users.Service, payments *payment.Service, gateway *payment.Client,
	manager *subscription.Manager, cat *catalog.Catalog, resp *responses.Service, st store.Store) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance:  tgBot,
		Users:     usersSvc,
		Payments:  payments,
		Gateway:   gateway,
		Manager:   manager,
		Catalog:   cat,
		Responses: resp,
		Store:     st,
	}, nil
}

func (b *Bot) Start() {
	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	// /start command
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		userID := strconv.FormatInt(message.From.ID, 10)

		if _, _, err := b.Users.Register(ctx.Context(), userID, message.From.Username, message.From.FirstName); err != nil {
			log.Printf("Failed to register user %s: %v", userID, err)
		}
		b.recordEvent(ctx.Context(), userID, "/start")

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID),
			b.Responses.Welcome(ctx.Context(), message.From.FirstName),
		).WithParseMode(telego.ModeHTML).WithReplyMarkup(b.planKeyboard()))
		return nil
	}, th.CommandEqual("start"))

	// /help command
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		userID := strconv.FormatInt(update.Message.From.ID, 10)
		b.recordEvent(ctx.Context(), userID, "/help")

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(update.Message.Chat.ID),
			b.Responses.Help(ctx.Context()),
		).WithParseMode(telego.ModeHTML))
		return nil
	}, th.CommandEqual("help"))

	// /status command - effective privilege of the caller
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		userID := strconv.FormatInt(message.From.ID, 10)
		b.recordEvent(ctx.Context(), userID, "/status")

		status, err := b.Manager.Status(ctx.Context(), userID)
		if err != nil {
			log.Printf("Failed to derive status for user %s: %v", userID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(message.Chat.ID), b.Responses.Apology(ctx.Context())))
			return nil
		}

		var msg string
		switch status {
		case subscription.StatusActive:
			msg = "✅ Sua assinatura está ativa!"
		case subscription.StatusGrace:
			msg = "⚠️ Sua assinatura venceu, mas seu acesso ainda vale por hoje. Renove para não perder o VIP!"
		case subscription.StatusExpired:
			msg = "❌ Você não possui assinatura ativa. Escolha um plano:"
		}

		params := tu.Message(tu.ID(message.Chat.ID), msg)
		if status != subscription.StatusActive {
			params = params.WithReplyMarkup(b.planKeyboard())
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), params)
		return nil
	}, th.CommandEqual("status"))

	// Plan purchase callbacks
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		userID := strconv.FormatInt(callback.From.ID, 10)
		planID := models.PlanID(strings.TrimPrefix(callback.Data, "plan_"))
		b.recordEvent(ctx.Context(), userID, callback.Data)

		b.handlePurchase(ctx, callback.From.ID, userID, planID)
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
		return nil
	}, th.CallbackDataPrefix("plan_"))

	// Unknown command
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		userID := strconv.FormatInt(update.Message.From.ID, 10)
		b.recordEvent(ctx.Context(), userID, update.Message.Text)

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(update.Message.Chat.ID),
			b.Responses.UnknownCommand(ctx.Context()),
		))
		return nil
	}, th.AnyCommand())

	// Plain text
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		userID := strconv.FormatInt(update.Message.From.ID, 10)
		b.recordEvent(ctx.Context(), userID, "mensagem")

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(update.Message.Chat.ID),
			b.Responses.Default(ctx.Context()),
		))
		return nil
	}, th.AnyMessageWithText())

	handler.Start()
}

func (b *Bot) handlePurchase(ctx *th.Context, chatID int64, userID string, planID models.PlanID) {
	plan, err := b.Catalog.Resolve(planID)
	if err != nil {
		log.Printf("Purchase with unknown plan %s from user %s: %v", planID, userID, err)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), b.Responses.Apology(ctx.Context())))
		return
	}

	if _, _, err := b.Users.Register(ctx.Context(), userID, "", ""); err != nil {
		log.Printf("Failed to register user %s: %v", userID, err)
	}

	pay, err := b.Payments.Create(ctx.Context(), userID, planID, "")
	if err != nil {
		log.Printf("Failed to create payment for user %s: %v", userID, err)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), b.Responses.Apology(ctx.Context())))
		return
	}

	checkout, err := b.Gateway.CreateCheckout(ctx.Context(), plan, pay.ID, map[string]string{
		"user_id": userID,
		"plan":    string(planID),
	})
	if err != nil {
		log.Printf("Failed to create checkout for payment %s: %v", pay.ID, err)
		// The pending payment would never be confirmable anyway.
		if cerr := b.Payments.MarkCancelled(ctx.Context(), pay.ID); cerr != nil {
			log.Printf("Failed to cancel payment %s: %v", pay.ID, cerr)
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), b.Responses.Apology(ctx.Context())))
		return
	}

	msg := fmt.Sprintf("💳 %s por R$ %s\n\nPague pelo link abaixo. O link vale por 3 horas:\n%s",
		plan.Description, plan.Price.StringFixed(2), checkout.InitPoint)
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), msg))
}

func (b *Bot) planKeyboard() *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	for _, plan := range b.Catalog.All() {
		label := fmt.Sprintf("%s - R$ %s", plan.Description, plan.Price.StringFixed(2))
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithCallbackData("plan_"+string(plan.ID)),
		))
	}
	return tu.InlineKeyboard(rows...)
}

// Notify sends a plain message to a user, for the background worker.
func (b *Bot) Notify(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	_, err = b.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

func (b *Bot) recordEvent(ctx context.Context, userID, eventType string) {
	event := &models.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      eventType,
		CreatedAt: time.Now(),
	}
	if err := b.Store.SaveEvent(ctx, event); err != nil {
		log.Printf("Failed to record event %s for user %s: %v", eventType, userID, err)
	}
}
