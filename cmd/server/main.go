package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/craftyxhub/craftyx-portal/auth"
	"github.com/craftyxhub/craftyx-portal/internal/config"
	"github.com/craftyxhub/craftyx-portal/internal/logger"
	"github.com/craftyxhub/craftyx-portal/server"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/craftyxhub/craftyx-portal/token"
	"github.com/craftyxhub/craftyx-portal/token/refresh"
	"github.com/craftyxhub/craftyx-portal/users"
	fakeuserrepo "github.com/craftyxhub/craftyx-portal/users/repofake"
	"github.com/craftyxhub/craftyx-portal/users/repogorm"
	"github.com/rs/zerolog/log"
)

func main() {
	c := config.New()
	logger.Init(c.GetLogLevel(), c.GetLogFormat())
	if err := config.Validate(c); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	for {
		if err := run(c); err != nil {
			log.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	userRepo, closeRepo, err := openUserRepo(c.GetDatabaseURL())
	if err != nil {
		return err
	}
	defer closeRepo()

	tokens := token.New(token.NewHMACSigner(c.GetJWTSecret()),
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
	)
	refreshes := refresh.NewManager(refresh.NewInMemoryRepo(), c.GetMaxSessionAge(), nil)

	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Sessions: sessions.NewInMemoryRepo()},
		tokens, refreshes,
		auth.WithOTPLength(c.GetOTPLength()),
		auth.WithOTPExpiry(c.GetOTPExpiry()),
		auth.WithSessionAge(c.GetMaxSessionAge()),
	)
	if err != nil {
		return fmt.Errorf("auth.NewService: %w", err)
	}

	srv, err := server.New(c, authService)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	go listenAndServe(httpServer)

	if _, err := srv.Start(context.Background()); err != nil {
		_ = shutdown(httpServer)
		return fmt.Errorf("server.Start: %w", err)
	}

	waitForStopSignal()
	srvCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(srvCtx)
	return shutdown(httpServer)
}

// openUserRepo uses SQLite through GORM when a database URL is configured and an
// in-memory store otherwise.
func openUserRepo(dsn string) (users.UserRepo, func(), error) {
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, users are kept in memory")
		return fakeuserrepo.NewFakeUserRepo(), func() {}, nil
	}
	repo, err := repogorm.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("repogorm.Open: %w", err)
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close user database")
		}
	}, nil
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
		os.Exit(1)
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
