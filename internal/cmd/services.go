package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mquinn/livelot/internal/auction"
	"github.com/mquinn/livelot/internal/channel"
	"github.com/mquinn/livelot/internal/clients"
	"github.com/mquinn/livelot/internal/clock"
	"github.com/mquinn/livelot/internal/feed"
	"github.com/mquinn/livelot/internal/refresh"
	"github.com/mquinn/livelot/internal/statusapi"
	"github.com/mquinn/livelot/internal/store"
)

type Services struct {
	Store       *store.Store
	Supervisor  *channel.Supervisor
	Clock       *clock.AuctionClock
	Coordinator *refresh.Coordinator
	App         *auction.App
	Server      *http.Server

	closeFeed func()
}

func setupServices(cfg *Config) (*Services, error) {
	clk := clockwork.NewRealClock()
	st := store.New(clk)

	token := getEnv("LIVELOT_API_TOKEN", "")
	submitTimeout := getEnvAsDuration("LIVELOT_SUBMIT_TIMEOUT", 10*time.Second)

	bidClient := clients.NewBidClient(cfg.API.BaseURL, token, submitTimeout)
	operatorClient := clients.NewOperatorClient(cfg.API.BaseURL, token)
	timerClient := clients.NewTimerClient(cfg.API.BaseURL, token)
	catalogClient := clients.NewCatalogClient(cfg.API.BaseURL, token)

	coordinator := refresh.New(func(ctx context.Context) error {
		lots, err := catalogClient.FetchLots(ctx)
		if err != nil {
			return err
		}
		st.ReplaceLots(lots)
		return nil
	}, clk, refresh.DefaultConfig())

	source, closeFeed, err := setupFeedSource(cfg)
	if err != nil {
		return nil, err
	}

	applier := auction.NewEventApplier(st)
	supervisor := channel.New(source, applier, coordinator, clk, channel.DefaultConfig(), nil)

	auctionClock := clock.New(clk, st, coordinator, clock.DefaultConfig())
	st.AddListener(auctionClock.HandleNotification)

	app := auction.NewApp(st, bidClient, operatorClient, timerClient, coordinator)

	handler := statusapi.NewHandler(st, supervisor, clk)
	actions := statusapi.NewActionsHandler(app, supervisor)
	server := statusapi.NewServer(handler, actions, getEnv("PORT", "8080"))

	return &Services{
		Store:       st,
		Supervisor:  supervisor,
		Clock:       auctionClock,
		Coordinator: coordinator,
		App:         app,
		Server:      server,
		closeFeed:   closeFeed,
	}, nil
}

func setupFeedSource(cfg *Config) (channel.Source, func(), error) {
	switch cfg.Feed.Transport {
	case "websocket":
		return feed.NewWebsocketSource(feed.DefaultWebsocketConfig(cfg.Feed.URL)), func() {}, nil
	case "nats":
		source, err := feed.NewNATSSource(feed.DefaultNATSConfig(cfg.Feed.URL))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect feed: %w", err)
		}
		return source, source.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed transport %q", cfg.Feed.Transport)
	}
}
