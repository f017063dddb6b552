package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"atelier/internal/config"
	"atelier/internal/handlers"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/repositories"
	"atelier/internal/services"
	"atelier/pkg/media"
	"atelier/pkg/notify"
	"atelier/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Application holds the wired server and its background workers.
type Application struct {
	Config  *config.Config
	Fiber   *fiber.App
	Auth    *services.AuthService
	Store   media.Store
	Sweeper *services.MediaSweeper

	repos    *repositories.Set
	mq       *rabbitmq.Client
	inline   services.InlineCleaner
	notifier notify.Notifier
	cron     *cron.Cron
	closers  []func() error
}

// Option overrides a component New would otherwise build from config.
type Option func(*Application)

// WithRepositories uses set instead of opening the configured database.
func WithRepositories(set *repositories.Set) Option {
	return func(a *Application) { a.repos = set }
}

// WithStore uses store instead of the configured media driver.
func WithStore(store media.Store) Option {
	return func(a *Application) { a.Store = store }
}

// WithNotifier replaces the mail or log notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(a *Application) { a.notifier = n }
}

// New wires repositories, media storage, messaging, services and routes.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) init() error {
	cfg := a.Config

	if a.repos == nil {
		set, closer, err := openRepositories(cfg)
		if err != nil {
			return err
		}
		a.repos = set
		a.closers = append(a.closers, closer)
	}

	if a.Store == nil {
		store, err := newStore(cfg)
		if err != nil {
			return err
		}
		a.Store = store
	}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:    cfg.RabbitMQURL,
			Queues: []string{services.MediaCleanupQueue, services.ContactMessagesQueue},
		})
		if err != nil {
			return err
		}
		a.mq = mq
	}

	if a.notifier == nil {
		a.notifier = newNotifier(cfg)
	}

	a.inline = services.InlineCleaner{Store: a.Store}
	var cleaner services.MediaCleaner = a.inline
	dispatcher := services.ContactDispatcher{Notifier: a.notifier}
	if a.mq != nil {
		cleaner = services.QueuedCleaner{Publisher: a.mq, Fallback: a.inline}
		dispatcher.Publisher = a.mq
	}

	maxSize := cfg.MaxUploadBytes
	products := services.NewResourceService[models.Product](a.repos.Products, services.ProductSchema(), a.Store, cleaner, maxSize)
	portfolioImages := services.NewResourceService[models.PortfolioImage](a.repos.PortfolioImages, services.PortfolioImageSchema(), a.Store, cleaner, maxSize)
	portfolioVideos := services.NewResourceService[models.PortfolioVideo](a.repos.PortfolioVideos, services.PortfolioVideoSchema(), a.Store, cleaner, maxSize)
	team := services.NewResourceService[models.TeamMember](a.repos.Team, services.TeamSchema(), a.Store, cleaner, maxSize)
	about := services.NewAboutService(a.repos.About, a.Store, cleaner, maxSize)
	contactInfo := services.NewSingletonService[models.ContactInfo](a.repos.ContactInfo, services.ContactInfoSchema(), a.Store, cleaner, maxSize)
	messages := services.NewResourceService[models.ContactMessage](a.repos.ContactMessages, services.ContactMessageSchema(dispatcher.Dispatch), a.Store, cleaner, maxSize)

	a.Auth = services.NewAuthService(a.repos.Users, cfg.JWTSecret, cfg.JWTTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	a.Sweeper = services.NewMediaSweeper(a.Store, cfg.MediaSweepGrace, products, portfolioImages, team, about)

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "atelier",
		ErrorHandler: handlers.ErrorHandler(cfg.Debug),
		// A product carries up to seven images.
		BodyLimit: int(maxSize)*(models.MaxAdditionalImages+2) + 1<<20,
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(requestid.New())
	a.Fiber.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	a.Fiber.Use(fiberlogger.New())

	a.Fiber.Get("/health", a.handleHealth)
	if mem, ok := a.Store.(*media.MemoryStore); ok {
		a.Fiber.Get("/media/*", serveMemoryMedia(mem))
	}

	gate := middleware.AuthRequired(a.Auth)
	api := a.Fiber.Group("/api")

	handlers.NewAuthHandler(a.Auth).RegisterRoutes(api, gate)
	handlers.NewResourceHandler(products, "Product").RegisterRoutes(api, "/products", gate)
	handlers.NewResourceHandler(portfolioImages, "Portfolio image").RegisterRoutes(api, "/portfolio/images", gate)
	handlers.NewResourceHandler(portfolioVideos, "Portfolio video").RegisterRoutes(api, "/portfolio/videos", gate)
	handlers.NewResourceHandler(team, "Team member").RegisterRoutes(api, "/team", gate)
	handlers.NewAboutHandler(about).RegisterRoutes(api, "/about", gate)
	handlers.NewSingletonHandler(contactInfo).RegisterRoutes(api, "/contact/info", gate)

	inbox := handlers.NewResourceHandler(messages, "Message")
	limiter := middleware.NewRateLimiter(cfg.ContactRatePerMinute, cfg.ContactRatePerMinute)
	api.Post("/contact/message", limiter.Handler(), inbox.HandleCreate)
	private := api.Group("/contact/messages", gate)
	private.Get("/", inbox.HandleList)
	private.Get("/:id", inbox.HandleGet)
	private.Put("/:id", inbox.HandleUpdate)
	private.Delete("/:id", inbox.HandleDelete)

	return nil
}

func newStore(cfg *config.Config) (media.Store, error) {
	if cfg.MediaDriver == "s3" {
		return media.NewS3Store(media.S3Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			PublicURL:       cfg.MediaPublicURL,
			MaxSize:         cfg.MaxUploadBytes,
		})
	}
	base := cfg.MediaPublicURL
	if base == "" {
		base = strings.TrimSuffix(cfg.APIBaseURL, "/api") + "/media"
	}
	zap.L().Warn("using in-memory media store; uploads are lost on restart", zap.String("base_url", base))
	return media.NewMemoryStore(base, cfg.MaxUploadBytes), nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.SMTPHost == "" || cfg.NotifyEmail == "" {
		return notify.LogNotifier{}
	}
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     from,
		To:       cfg.NotifyEmail,
	})
}

func corsOrigins(cfg *config.Config) string {
	origins := cfg.CORSOriginList()
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}

func (a *Application) handleHealth(c *fiber.Ctx) error {
	queue := "disabled"
	if a.mq != nil {
		queue = "connected"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": a.Config.DBDriver,
		"media":    a.Config.MediaDriver,
		"queue":    queue,
	})
}

func serveMemoryMedia(store *media.MemoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, contentType, ok := store.Object(c.Params("*"))
		if !ok {
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(data)
	}
}

// Start launches queue consumers and the sweep schedule.
func (a *Application) Start() error {
	if a.mq != nil {
		err := a.mq.Consume(services.MediaCleanupQueue, func(d amqp.Delivery) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return services.HandleCleanupMessage(ctx, a.inline, d.Body)
		})
		if err != nil {
			return err
		}
		err = a.mq.Consume(services.ContactMessagesQueue, func(d amqp.Delivery) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return services.HandleContactMessage(ctx, a.notifier, d.Body)
		})
		if err != nil {
			return err
		}
	}

	if a.Config.MediaSweepSchedule != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.Config.MediaSweepSchedule, a.Sweeper.Run); err != nil {
			return fmt.Errorf("invalid MEDIA_SWEEP_SCHEDULE %q: %w", a.Config.MediaSweepSchedule, err)
		}
		a.cron.Start()
		zap.L().Info("media sweep scheduled", zap.String("schedule", a.Config.MediaSweepSchedule))
	}
	return nil
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *Application) Listen() error {
	return a.Fiber.Listen(a.Config.AppPort)
}

// Serve serves HTTP on ln until Shutdown.
func (a *Application) Serve(ln net.Listener) error {
	return a.Fiber.Listener(ln)
}

// Shutdown stops the server, then the workers, then releases connections.
func (a *Application) Shutdown(timeout time.Duration) error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.ShutdownWithTimeout(timeout); err != nil {
			errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
		}
	}
	if a.cron != nil {
		select {
		case <-a.cron.Stop().Done():
		case <-time.After(timeout):
			zap.L().Warn("media sweep still running at shutdown")
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the queue and database connections.
func (a *Application) Close() error {
	var errs []error
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
		a.mq = nil
	}
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
