package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trivia-pool-bot/internal/app"
	"trivia-pool-bot/internal/domain"
)

const (
	cmdStart    = "start"
	cmdAdmin    = "admin"
	cmdAboutUs  = "aboutus"
	cmdPremium  = "premium"
	cmdFeedback = "feedback"
)

// Callback actions form a closed set; anything else is rejected explicitly.
const (
	actionPlayTrivia       = "play_trivia"
	actionGoPremium        = "go_premium"
	actionLeaderboard      = "leaderboard"
	actionAdminCheckPayout = "admin_check_payout"
	actionAdminLeaderboard = "admin_leaderboard"
)

// pollRef ties an outstanding quiz poll to its owner and question, so a
// PollAnswer update can be graded and answered with the right option text.
type pollRef struct {
	userID   int64
	question domain.Question
}

// Bot is the Telegram gateway: it translates updates into quiz, payment, and
// payout operations and delivers replies, quiz polls, and notifications.
type Bot struct {
	api      *tgbotapi.BotAPI
	quiz     *app.QuizService
	payments *app.PaymentService
	payouts  *app.PayoutService
	adminID  int64

	mu    sync.Mutex
	polls map[string]pollRef
}

func New(token string, quiz *app.QuizService, payments *app.PaymentService, payouts *app.PayoutService, adminID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return &Bot{
		api:      api,
		quiz:     quiz,
		payments: payments,
		payouts:  payouts,
		adminID:  adminID,
		polls:    make(map[string]pollRef),
	}, nil
}

// Start long-polls Telegram until the context is canceled. Each update is
// handled in its own goroutine; handlers for different users are independent.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}

	updates := b.api.GetUpdatesChan(u)
	log.Println("bot: polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bot: recovered from panic in update handler: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.PollAnswer != nil:
		b.handlePollAnswer(ctx, update.PollAnswer)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	userID := message.From.ID

	switch message.Command() {
	case cmdStart:
		b.handleStart(ctx, message)
	case cmdAdmin:
		b.handleAdmin(ctx, userID)
	case cmdAboutUs:
		b.sendMessage(userID, aboutText)
	case cmdPremium:
		b.sendMessage(userID, premiumText)
	case cmdFeedback:
		b.sendMessage(userID, "✍️ Write your feedback as a plain message and it will reach the team.")
	case "":
		b.forwardFeedback(message)
	default:
		b.sendMessage(userID, "Unknown command. Use /start to play, /premium to upgrade, or /aboutus to learn more.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	created, err := b.quiz.Register(ctx, userID, message.From.UserName)
	if err != nil {
		log.Printf("bot: register %d failed: %v", userID, err)
		b.sendMessage(userID, "Something went wrong, please try again later.")
		return
	}
	if created {
		log.Printf("bot: new player %d (%s)", userID, message.From.UserName)
	}

	msg := tgbotapi.NewMessage(userID, welcomeText)
	msg.ReplyMarkup = playerKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: send welcome to %d failed: %v", userID, err)
	}
}

func (b *Bot) handleAdmin(_ context.Context, userID int64) {
	if err := b.authorizeAdmin(userID); err != nil {
		log.Printf("bot: /admin from %d rejected: %v", userID, err)
		b.sendMessage(userID, "⛔ This command is for the administrator only.")
		return
	}
	msg := tgbotapi.NewMessage(userID, "Admin panel:")
	msg.ReplyMarkup = adminKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: send admin panel failed: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	action := callback.Data

	// Acknowledge immediately to prevent "query is too old" errors.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("bot: callback ack failed: %v", err)
	}

	switch action {
	case actionPlayTrivia:
		b.sendNextQuestion(ctx, userID)
	case actionGoPremium:
		b.sendCheckoutLink(ctx, userID)
	case actionLeaderboard:
		b.sendLeaderboard(ctx, userID, 10)
	case actionAdminCheckPayout:
		if err := b.authorizeAdmin(userID); err != nil {
			log.Printf("bot: callback %s from %d rejected: %v", action, userID, err)
			b.sendMessage(userID, "⛔ Admin action rejected.")
			return
		}
		b.runPayoutCheck(ctx, userID)
	case actionAdminLeaderboard:
		if err := b.authorizeAdmin(userID); err != nil {
			log.Printf("bot: callback %s from %d rejected: %v", action, userID, err)
			b.sendMessage(userID, "⛔ Admin action rejected.")
			return
		}
		b.sendLeaderboard(ctx, userID, 0)
	default:
		log.Printf("bot: unknown callback action %q from %d", action, userID)
		b.sendMessage(userID, "Unknown action.")
	}
}

// authorizeAdmin rejects admin actions from anyone but the configured
// administrator; failures are visible to the caller and change no state.
func (b *Bot) authorizeAdmin(userID int64) error {
	if userID != b.adminID {
		return domain.ErrUnauthorized
	}
	return nil
}

// sendNextQuestion starts or resumes today's quiz and delivers the current
// question as a Telegram quiz poll.
func (b *Bot) sendNextQuestion(ctx context.Context, userID int64) {
	question, index, err := b.quiz.NextQuestion(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrQuizComplete):
		b.sendMessage(userID, "🏁 You've finished today's quiz. Come back tomorrow for a fresh one!")
		return
	case errors.Is(err, domain.ErrSessionNotFound):
		b.sendMessage(userID, "Use /start first so I know who you are.")
		return
	default:
		log.Printf("bot: next question for %d failed: %v", userID, err)
		b.sendMessage(userID, "😔 The question service is unavailable right now, please try again later.")
		return
	}

	poll := tgbotapi.NewPoll(userID, fmt.Sprintf("Q%d: %s", index+1, question.Text), question.Options...)
	poll.IsAnonymous = false
	poll.Type = "quiz"
	poll.CorrectOptionID = int64(question.CorrectOption)

	sent, err := b.api.Send(poll)
	if err != nil {
		log.Printf("bot: send poll to %d failed: %v", userID, err)
		return
	}
	if sent.Poll == nil {
		log.Printf("bot: poll message without poll payload for %d", userID)
		return
	}

	b.mu.Lock()
	b.polls[sent.Poll.ID] = pollRef{userID: userID, question: question}
	b.mu.Unlock()
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	b.mu.Lock()
	ref, ok := b.polls[answer.PollID]
	if ok {
		delete(b.polls, answer.PollID)
	}
	b.mu.Unlock()

	if !ok || ref.userID != answer.User.ID || len(answer.OptionIDs) == 0 {
		// Stale or foreign poll answer; nothing to grade.
		return
	}

	outcome, err := b.quiz.GradeAnswer(ctx, ref.userID, answer.OptionIDs[0])
	if err != nil {
		log.Printf("bot: grade answer for %d failed: %v", ref.userID, err)
		return
	}
	if !outcome.Graded {
		// Late or duplicate answer, silently discarded.
		return
	}

	if outcome.Correct {
		b.sendMessage(ref.userID, fmt.Sprintf("✅ Correct! Your score: %d", outcome.Score))
	} else {
		correct := ""
		if outcome.CorrectOption >= 0 && outcome.CorrectOption < len(ref.question.Options) {
			correct = ref.question.Options[outcome.CorrectOption]
		}
		b.sendMessage(ref.userID, fmt.Sprintf("❌ Not quite. The right answer was: %s", correct))
	}

	if outcome.QuizComplete {
		b.sendMessage(ref.userID, "🏁 That was the last question for today. See you tomorrow!")
		return
	}
	b.sendNextQuestion(ctx, ref.userID)
}

func (b *Bot) sendCheckoutLink(ctx context.Context, userID int64) {
	if _, err := b.quiz.Session(ctx, userID); errors.Is(err, domain.ErrSessionNotFound) {
		b.sendMessage(userID, "Use /start first so I know who you are.")
		return
	}
	checkoutURL, err := b.payments.CreateCheckout(ctx, userID)
	if err != nil {
		log.Printf("bot: checkout for %d failed: %v", userID, err)
		b.sendMessage(userID, "😔 The payment service is unavailable right now, please try again later.")
		return
	}
	b.sendMessage(userID, fmt.Sprintf("💎 Premium is 100 birr per month.\nPay here: %s\n\nOnce the payment is confirmed your answers start earning prize points.", checkoutURL))
}

// sendLeaderboard formats the score ranking; limit 0 means the full board.
func (b *Bot) sendLeaderboard(ctx context.Context, userID int64, limit int) {
	entries, err := b.quiz.Leaderboard(ctx)
	if err != nil {
		log.Printf("bot: leaderboard failed: %v", err)
		b.sendMessage(userID, "Couldn't load the leaderboard, please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(userID, "The leaderboard is empty — be the first to play!")
		return
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	text := "🏆 Leaderboard:\n"
	for i, entry := range entries {
		name := entry.DisplayName
		if name == "" {
			name = fmt.Sprintf("player %d", entry.UserID)
		}
		badge := ""
		if entry.IsPremium {
			badge = " 💎"
		}
		text += fmt.Sprintf("%d. %s%s — %d pts\n", i+1, name, badge, entry.Score)
	}
	b.sendMessage(userID, text)
}

func (b *Bot) runPayoutCheck(ctx context.Context, userID int64) {
	report, err := b.payouts.CheckAndTrigger(ctx)
	if err != nil {
		log.Printf("bot: payout check failed: %v", err)
		b.sendMessage(userID, "Payout check failed, see logs.")
		return
	}
	if !report.Triggered {
		b.sendMessage(userID, fmt.Sprintf("Threshold not met, current revenue: %d birr.", report.Revenue))
	}
	// When triggered, the payout engine already sent the aggregate summary.
}

// forwardFeedback relays plain-text messages to the administrator.
func (b *Bot) forwardFeedback(message *tgbotapi.Message) {
	if message.Text == "" || message.From.ID == b.adminID {
		return
	}
	b.sendMessage(b.adminID, fmt.Sprintf("Feedback from @%s (%d): %s", message.From.UserName, message.From.ID, message.Text))
	b.sendMessage(message.From.ID, "✅ Your feedback has been sent. Thank you!")
}

// NotifyUser implements the notifier port used by the payment and payout
// engines.
func (b *Bot) NotifyUser(_ context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("notify %d: %w", userID, err)
	}
	return nil
}

// sendMessage delivers a text reply, logging delivery failures and moving on.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: send message to %d failed: %v", chatID, err)
	}
}

func playerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎮 Play Trivia", actionPlayTrivia),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💎 Go Premium", actionGoPremium),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", actionLeaderboard),
		),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Check Payout", actionAdminCheckPayout),
			tgbotapi.NewInlineKeyboardButtonData("📊 Full Leaderboard", actionAdminLeaderboard),
		),
	)
}

const welcomeText = `👋 Welcome to the trivia pool!

Every day you get a fresh 10-question quiz: 3 about our region and 7 from around the world.

Premium players earn 10 points per correct answer and compete for a monthly cash prize pool.

Use the buttons below to play, upgrade, or check the standings.`

const aboutText = `ℹ️ About us:

Free: a daily quiz, just for fun
Premium: 100 birr per month — your correct answers earn points and the top players split a cash prize pool

💳 Payments are processed by Chapa.`

const premiumText = `💎 Premium membership is 100 birr per month.

Tap "Go Premium" after /start to get your payment link.`
