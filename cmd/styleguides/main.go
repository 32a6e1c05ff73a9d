package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	adapthttp "styleguides/internal/adapter/http"
	"styleguides/internal/adapter/github"
	"styleguides/internal/adapter/mail"
	"styleguides/internal/adapter/memory"
	"styleguides/internal/adapter/postgres"
	"styleguides/internal/app"
	"styleguides/internal/cache"
	"styleguides/internal/config"
	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

const cleanupInterval = time.Hour

func main() {
	log := logger.New("styleguides")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	mem := memory.New()

	var (
		users         domain.UserRepository
		contributions domain.ContributionRepository
		audit         domain.AuditLogRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db open")
		}
		defer func() { _ = db.Close() }()
		users = postgres.NewUserRepo(db)
		contributions = postgres.NewContributionRepo(db)
		audit = postgres.NewAuditRepo(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		cdb := memory.NewContributionDB()
		users = mem.Users()
		contributions = cdb.Contributions()
		audit = cdb.AuditLogs()
	}

	var mailer app.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = mail.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddr, log)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, emails are logged only")
		mailer = mail.NewLogOnly(log)
	}

	sessionSvc := app.NewSessionService(mem.Sessions(), users, log)
	verificationSvc := app.NewVerificationService(mem.Tokens(), mem.RateLimits(), users, mailer, cfg.BaseURL, log)

	gh := github.New(cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubToken, log)
	fc := cache.New(cfg.CacheDir)
	contributorsSvc := app.NewContributorsService(gh, fc, cfg.CacheTTL, log)

	contributionSvc := app.NewContributionService(contributions, users, audit, log)

	ctx := context.Background()
	providers, err := adapthttp.NewProviders(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("oauth providers")
	}

	server := adapthttp.NewServer(adapthttp.Options{
		Sessions:       sessionSvc,
		Verification:   verificationSvc,
		Contributors:   contributorsSvc,
		Contributions:  contributionSvc,
		Users:          users,
		Audit:          audit,
		Providers:      providers,
		BaseURL:        cfg.BaseURL,
		ExclusionsFile: cfg.ExclusionsFile,
		ManifestPath:   cfg.VersionsFile,
		SecureCookies:  cfg.SecureCookies,
		Log:            log,
	})

	go cleanupLoop(ctx, sessionSvc, verificationSvc, log)

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// cleanupLoop periodically sweeps expired sessions and verification tokens.
func cleanupLoop(ctx context.Context, sessions *app.SessionService, verification *app.VerificationService, log *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := sessions.CleanupExpiredSessions(ctx); err != nil {
			log.Error().Err(err).Msg("session cleanup")
		}
		if _, err := verification.CleanupExpiredTokens(ctx); err != nil {
			log.Error().Err(err).Msg("token cleanup")
		}
	}
}
