package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trivia-pool-bot/internal/app"
	"trivia-pool-bot/internal/bot"
	"trivia-pool-bot/internal/config"
	"trivia-pool-bot/internal/domain"
	"trivia-pool-bot/internal/infra/memory"
	pgstore "trivia-pool-bot/internal/infra/postgres"
	redisstore "trivia-pool-bot/internal/infra/redis"
	"trivia-pool-bot/internal/payment"
	"trivia-pool-bot/internal/questions"
	transport "trivia-pool-bot/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the bot and HTTP server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		sessions     app.SessionStore
		transactions app.TransactionStore
		ledger       app.Ledger
	)
	if redisClient != nil {
		store := redisstore.NewStore(redisClient)
		sessions = store
		transactions = redisstore.Transactions{Store: store}
		ledger = store
	} else {
		store := memory.NewStore()
		sessions = store
		transactions = memory.Transactions{Store: store}
		ledger = store
	}

	var bankLoader questions.BankLoader = questions.NewStaticBankLoader(curatedBank())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		bankLoader = pgstore.NewBankLoader(pool)
	}
	bankTTL := config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute)
	source := questions.NewCompositeSource(
		questions.NewCachedBank(bankLoader, bankTTL),
		questions.NewTriviaClient(cfg.Trivia.BaseURL),
	)

	hub := app.NewLeaderboardHub()
	notifier := &notifierProxy{}

	quizService := app.NewQuizService(sessions, source, ledger, hub)
	gateway := payment.NewChapaClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey)
	paymentService := app.NewPaymentService(sessions, transactions, ledger, gateway, notifier, cfg.Payment.PremiumPrice, cfg.Payment.CallbackURL)
	payoutService := app.NewPayoutService(sessions, ledger, notifier, hub, cfg.Telegram.AdminID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Telegram.Token != "" {
		tgBot, err := bot.New(cfg.Telegram.Token, quizService, paymentService, payoutService, cfg.Telegram.AdminID)
		if err != nil {
			return err
		}
		notifier.set(tgBot)
		go tgBot.Start(runCtx)
	} else {
		log.Println("telegram token not configured, running HTTP surface only")
	}

	if interval := config.TTLDuration(cfg.Payout.CheckInterval, 0); interval > 0 {
		go runPayoutTicker(runCtx, payoutService, interval)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/payments/webhook", transport.NewWebhookHandler(paymentService))
	mux.HandleFunc("/ws/leaderboard", transport.NewWSHandler(quizService, hub).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia pool bot on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runPayoutTicker(ctx context.Context, payouts *app.PayoutService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := payouts.CheckAndTrigger(ctx)
			if err != nil {
				log.Printf("payout tick failed: %v", err)
				continue
			}
			if report.Triggered {
				log.Printf("payout distributed: pool=%.2f winners=%d", report.PrizePool, len(report.Winners))
			}
		}
	}
}

// notifierProxy lets services be wired before the Telegram gateway exists.
// Until a target is set, notifications are logged and dropped.
type notifierProxy struct {
	mu     sync.RWMutex
	target app.Notifier
}

func (p *notifierProxy) set(target app.Notifier) {
	p.mu.Lock()
	p.target = target
	p.mu.Unlock()
}

func (p *notifierProxy) NotifyUser(ctx context.Context, userID int64, text string) error {
	p.mu.RLock()
	target := p.target
	p.mu.RUnlock()
	if target == nil {
		log.Printf("notify %d (no gateway): %s", userID, text)
		return nil
	}
	return target.NotifyUser(ctx, userID, text)
}

// curatedBank is the built-in regional set used when Postgres is not
// configured; production deployments load the bank from the database.
func curatedBank() []domain.Question {
	return []domain.Question{
		{
			Text:          "What is the capital city of Ethiopia?",
			Options:       []string{"Addis Ababa", "Gondar", "Bahir Dar", "Mekelle"},
			CorrectOption: 0,
		},
		{
			Text:          "Which river, rising at Lake Tana, supplies most of the Nile's water?",
			Options:       []string{"The Awash", "The Blue Nile", "The Omo", "The Tekeze"},
			CorrectOption: 1,
		},
		{
			Text:          "Which Ethiopian city is famous for its rock-hewn churches?",
			Options:       []string{"Harar", "Axum", "Lalibela", "Jimma"},
			CorrectOption: 2,
		},
		{
			Text:          "What is the national currency of Ethiopia?",
			Options:       []string{"Shilling", "Birr", "Franc", "Nakfa"},
			CorrectOption: 1,
		},
		{
			Text:          "Which coffee ceremony drink originated in Ethiopia?",
			Options:       []string{"Espresso", "Buna", "Mocha", "Cappuccino"},
			CorrectOption: 1,
		},
		{
			Text:          "In which Ethiopian region would you find the Danakil Depression?",
			Options:       []string{"Afar", "Oromia", "Amhara", "Sidama"},
			CorrectOption: 0,
		},
	}
}
