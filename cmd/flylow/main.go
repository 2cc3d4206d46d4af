package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-password/password"
	"github.com/spf13/afero"

	"flylow/api"
	"flylow/config"
	"flylow/handlers"
	"flylow/internal/backends"
	"flylow/internal/logging"
	"flylow/services/accounts"
	"flylow/services/airports"
	"flylow/services/favorites"
	"flylow/services/flights"
	"flylow/services/oauth"
	"flylow/services/search"
	"flylow/services/sessions"
	"flylow/utils"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file, ignored when missing")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func run(configFile, envFile string) error {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	log.Printf("[main] flylow %s starting", handlers.BuildVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()

	directory, err := airports.Load(fs, cfg.Airports.File)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	client := flights.NewSkyScrapperClient(flights.ClientConfig{
		APIKey:            cfg.SkyScrapper.APIKey,
		Host:              cfg.SkyScrapper.Host,
		BaseURL:           cfg.SkyScrapper.BaseURL,
		Currency:          cfg.SkyScrapper.Currency,
		Market:            cfg.SkyScrapper.Market,
		CountryCode:       cfg.SkyScrapper.CountryCode,
		RequestsPerSecond: cfg.SkyScrapper.RequestsPerSecond,
	})
	searchSvc := search.NewService(directory, client, loc)

	store, err := backends.OpenFavorites(ctx, cfg, fs)
	if err != nil {
		return err
	}
	var closers []io.Closer
	closers = append(closers, store)
	favoritesSvc := favorites.NewService(store)

	accountsSvc, err := accounts.NewService(fs, cfg.Storage.Dir)
	if err != nil {
		return err
	}
	sessionsSvc, err := sessions.NewService(fs, cfg.Storage.Dir, cfg.SessionDuration())
	if err != nil {
		return err
	}
	defer sessionsSvc.Close()

	oauthSvc, err := newOAuth(cfg)
	if err != nil {
		return err
	}

	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc)
	pagesHandler, err := handlers.NewPagesHandler(authHandler, searchSvc, favoritesSvc, handlers.PagesConfig{
		Location:      loc,
		GoogleEnabled: oauthSvc.Enabled(),
	})
	if err != nil {
		return err
	}

	router := utils.NewRouter()
	api.RegisterRoutes(router, api.Handlers{
		Auth:      authHandler,
		Pages:     pagesHandler,
		Airports:  handlers.NewAirportsHandler(directory),
		Search:    handlers.NewSearchHandler(searchSvc),
		Favorites: handlers.NewFavoritesHandler(favoritesSvc),
		Static:    handlers.NewStaticHandler(),
		OAuth:     oauthSvc,
	}, sessionsSvc, api.PerMinute(ctx, cfg.Auth.SignInPerMinute))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.RequestLogger(utils.NewOriginPolicy(cfg.Server.AllowedOrigins).CORS(router)),
		ReadHeaderTimeout: 10 * time.Second,
		// no WriteTimeout: /api/auth/events is a long-lived stream
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[main] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Printf("[main] shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("[main] close: %v", err)
		}
	}
	return nil
}

func newOAuth(cfg config.Config) (*oauth.Service, error) {
	secret := cfg.Auth.Secret
	if strings.TrimSpace(secret) == "" {
		generated, err := password.Generate(48, 10, 0, false, true)
		if err != nil {
			return nil, err
		}
		secret = generated
		log.Printf("[main] auth.secret not set; using a random secret, provider logins will not survive restarts")
	}

	return oauth.NewService(oauth.Config{
		Secret:             secret,
		PublicURL:          cfg.Server.PublicURL,
		GoogleClientID:     cfg.Auth.GoogleClientID,
		GoogleClientSecret: cfg.Auth.GoogleClientSecret,
		SecureCookies:      strings.HasPrefix(cfg.Server.PublicURL, "https://"),
	})
}
