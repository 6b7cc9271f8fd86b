package main

import (
	"context"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/audit"
	"call-assistant/internal/auth"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
	"call-assistant/internal/httpapi"
	"call-assistant/internal/invites"
	"call-assistant/internal/metrics"
	"call-assistant/internal/notify"
	"call-assistant/internal/numbers"
	"call-assistant/internal/ratelimit"
	"call-assistant/internal/reporting"
	"call-assistant/internal/routing"
	"call-assistant/internal/settings"
	"call-assistant/internal/telephony"
	"call-assistant/internal/users"
	"call-assistant/internal/voiceagent"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/gin-gonic/gin"
)

// buildRouter wires services to HTTP routes.
// Keep this file free of business logic. Handlers delegate to internal modules.
func buildRouter(ctx context.Context, d deps) (*gin.Engine, error) {
	cfg := d.cfg
	tx := utils.NewSQLTransactor(d.db)

	userRepo := users.NewSQLRepo(d.db)
	inviteSvc := invites.NewService(invites.NewSQLRepo(d.db), users.NewDirectory(userRepo), d.mailer, cfg.App.FrontendURL)
	userSvc := users.NewService(userRepo, inviteSvc, tx, cfg.Auth.BcryptCost)
	bizSvc := businesses.NewService(businesses.NewSQLRepo(d.db))
	configSvc := apiconfig.NewService(apiconfig.NewSQLRepo(d.db), cfg.VoiceAgent.DefaultVoice, cfg.VoiceAgent.DefaultModel)
	settingsSvc := settings.NewService(settings.NewSQLRepo(d.db))
	numberSvc := numbers.NewService(numbers.NewSQLRepo(d.db), d.provider, cfg.App.BaseURL)
	callSvc := calls.NewService(calls.NewSQLRepo(d.db), audit.NewService(audit.NewSQLRepo(d.db)), tx)
	reportSvc := reporting.NewService(reporting.NewSQLRepo(d.db), callSvc, userSvc, bizSvc, inviteSvc)

	seeded, err := userSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return nil, err
	}
	if seeded {
		d.log.Info("default admin created", "email", cfg.Auth.AdminEmail)
	}

	agent, err := voiceagent.NewAgent(cfg.App.BaseURL, cfg.VoiceAgent.StreamPath, cfg.VoiceAgent.DefaultVoice, cfg.VoiceAgent.DefaultModel)
	if err != nil {
		return nil, err
	}
	bridge, err := voiceagent.NewBridge(voiceagent.Resolver{
		Calls:        callSvc,
		Businesses:   bizSvc,
		Configs:      configSvc,
		DefaultVoice: cfg.VoiceAgent.DefaultVoice,
		DefaultModel: cfg.VoiceAgent.DefaultModel,
	}, cfg.VoiceAgent.RealtimeURL)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewNotifier(settingsSvc, notify.NewWebhookSender(cfg.Notify.WebhookTimeout), d.publisher, d.pool, cfg.NATS.SubjectPrefix)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(d.log))
	r.Use(metrics.Middleware())
	r.Use(httpapi.CORS(cfg.App.CORSOrigins))

	// operational
	r.GET("/health", httpapi.Health{DB: d.db, Redis: d.rdb}.Handle)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Provider webhooks: public, signed by Twilio.
	{
		wh := &telephony.WebhookHandler{
			Lines:      numberSvc,
			Businesses: bizSvc,
			Settings:   settingsSvc,
			AIConfigs:  configSvc,
			Calls:      callSvc,
			Engine:     routing.NewRoutingEngine(),
			Agent:      agent,
			Limiter:    d.limiter,
			Provider:   d.provider,
			Deduper:    d.deduper,
			Notifier:   notifier,
			Async:      d.pool,
			BaseURL:    cfg.App.BaseURL,

			InboundLimit: ratelimit.New("webhook", cfg.RateLimit.WebhookRPS, cfg.RateLimit.WebhookBurst).WebhookMiddleware(ratelimit.ByDialedNumber),
		}
		g := r.Group(telephony.WebhookPrefix)
		if cfg.Twilio.ValidateSignature {
			g.Use(telephony.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.App.BaseURL).Middleware())
		}
		wh.Register(g)
	}

	// Media stream for AI calls. Twilio does not sign the websocket
	// handshake the way it signs webhooks; the bridge only accepts streams
	// for calls currently handed to the agent.
	r.GET(agent.StreamPath(), bridge.Handle)

	h := httpapi.Handlers{
		Auth:         d.auth,
		Users:        userSvc,
		Invites:      inviteSvc,
		Businesses:   bizSvc,
		APIConfigs:   configSvc,
		Settings:     settingsSvc,
		Numbers:      numberSvc,
		Calls:        callSvc,
		Reporting:    reportSvc,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		LoginLimiter: ratelimit.New("login", cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst),
	}
	h.Mount(r.Group("/api"), auth.RequireAccessToken(d.auth, cfg.Auth.CookieName))

	return r, nil
}
