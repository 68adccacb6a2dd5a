package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rahul/pipelineai/internal/assistant"
	"github.com/rahul/pipelineai/internal/gateway"
	"github.com/rahul/pipelineai/internal/observability"
	"github.com/rahul/pipelineai/internal/scheduler"
	"github.com/rahul/pipelineai/internal/tools"
)

const (
	heartbeatInterval = 30 * time.Second
	statusInterval    = time.Second
	searchResults     = 5
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the enabled chat gateways and run scheduled analyses",
	Long: `Connect to every enabled gateway (Telegram, Discord), answer chat
commands and questions, and re-run scheduled analyses in the background
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	registry := tools.NewRegistry(
		tools.NewScraperTool(),
		tools.NewWorkspaceTool(a.workspace),
		tools.NewScheduleTool(a.db),
	)
	if search, err := tools.NewSearchTool(searchResults); err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
	} else {
		registry.Register(search)
	}

	asst := assistant.New(a.models.Chatbot, registry, a.policy, a.db, a.prompts, a.logger)

	router := gateway.NewRouter(a.generator, asst, a.logger)
	router.Tasks = a.db
	router.Memory = a.db
	router.Sessions = a.db
	router.Config = cfg.Pipeline
	router.Pacing = a.pacing()

	var gateways []gateway.Messenger
	mux := gateway.NewMux(nil)
	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, router)
		if err != nil {
			return fmt.Errorf("telegram gateway: %w", err)
		}
		gateways = append(gateways, tg)
		mux = gateway.NewMux(tg)
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, router)
		if err != nil {
			return fmt.Errorf("discord gateway: %w", err)
		}
		gateways = append(gateways, dc)
		mux.Route(gateway.DiscordPrefix, dc)
	}
	if len(gateways) == 0 {
		return fmt.Errorf("no gateway is enabled; set gateways.telegram or gateways.discord in %s", configPath)
	}

	sched := scheduler.NewScheduler(a.generator, a.db, a.db, mux, a.logger)
	sched.Config = cfg.Pipeline
	sched.Pacing = a.pacing()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tty := observability.IsTTY()
	if tty {
		observability.PrintBanner()
		observability.InitializeTerminal()
		defer observability.CleanupTerminal()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, gw := range gateways {
		g.Go(func() error {
			if err := gw.Start(ctx); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				return err
			}
			return nil
		})
	}
	g.Go(func() error { return sched.Start(ctx) })
	g.Go(func() error {
		every(ctx, heartbeatInterval, func() {
			observability.Heartbeat()
			a.logger.LogHeartbeat()
		})
		return nil
	})
	if tty {
		g.Go(func() error {
			every(ctx, statusInterval, observability.PrintLiveStatus)
			return nil
		})
	}

	err = g.Wait()
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
	return err
}

// every calls fn on each tick until ctx is done.
func every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
