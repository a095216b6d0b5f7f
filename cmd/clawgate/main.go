package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clawgate/clawgate/pkg/agent"
	"github.com/clawgate/clawgate/pkg/channels"
	"github.com/clawgate/clawgate/pkg/config"
	"github.com/clawgate/clawgate/pkg/cron"
	"github.com/clawgate/clawgate/pkg/gateway"
	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/providers/anthropic"
	"github.com/clawgate/clawgate/pkg/session"
	"github.com/clawgate/clawgate/pkg/tools"
	"github.com/clawgate/clawgate/pkg/version"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clawgate",
		Short:         "Chat gateway multiplexing clients onto an LLM provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.AddCommand(newGatewayCmd(), newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (protocol %d)\n", version.Engine, version.Version, version.ProtocolVersion)
		},
	}
}

func newGatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the gateway server",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			return fmt.Errorf("enable file logging: %w", err)
		}
		defer logger.DisableFileLogging()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewManager(cfg.Agent.MaxSessions)
	registry := tools.NewRegistryWithPolicy(cfg.Tools.Deny, cfg.Tools.Allow)
	registry.RegisterBuiltins(cfg.Agent.Workspace, cfg.Tools.ExecTimeout)

	provider := anthropic.NewProviderWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	ag := agent.New(cfg, provider, sessions, registry)

	chans := channels.NewManager()
	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegramChannel(cfg.Channels.Telegram)
		if err != nil {
			logger.ErrorCF("main", "telegram channel unavailable", map[string]any{
				"error": err.Error(),
			})
		} else {
			chans.Register(tg)
		}
	}
	chans.StartAll(ctx, func(ctx context.Context, msg *channels.IncomingMessage) (string, error) {
		return ag.ProcessMessage(ctx, msg.Channel, msg.ChatID, msg.Content)
	})

	cronSvc := cron.NewService(func(ctx context.Context, job cron.Job) {
		fireCronJob(ctx, job, ag, chans)
	})
	cronSvc.LoadFromConfig(cfg.CronJobs)
	cronSvc.Start(ctx)
	defer cronSvc.Stop()

	state := gateway.NewState(cfg, sessions, registry, chans, cronSvc, ag)
	server := gateway.NewServer(state)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// fireCronJob dispatches one due job by kind: agentTurn prompts run
// through the agent, message jobs go straight to a channel.
func fireCronJob(ctx context.Context, job cron.Job, ag *agent.Agent, chans *channels.Manager) {
	switch job.Kind {
	case cron.KindMessage:
		if job.Channel == "" || job.To == "" {
			logger.WarnCF("main", "message job missing channel or recipient", map[string]any{
				"job": job.Name,
			})
			return
		}
		if err := chans.Send(ctx, &channels.OutgoingMessage{
			Channel: job.Channel,
			ChatID:  job.To,
			Content: job.Message,
		}); err != nil {
			logger.ErrorCF("main", "cron message delivery failed", map[string]any{
				"job":   job.Name,
				"error": err.Error(),
			})
		}
	default:
		reply, err := ag.ProcessMessage(ctx, "cron", job.ID, job.Prompt)
		if err != nil {
			logger.ErrorCF("main", "cron agent turn failed", map[string]any{
				"job":   job.Name,
				"error": err.Error(),
			})
			return
		}
		if job.Channel != "" && job.To != "" {
			if err := chans.Send(ctx, &channels.OutgoingMessage{
				Channel: job.Channel,
				ChatID:  job.To,
				Content: reply,
			}); err != nil {
				logger.ErrorCF("main", "cron reply delivery failed", map[string]any{
					"job":   job.Name,
					"error": err.Error(),
				})
			}
		}
	}
}
