// Command sfs drives tests on the Synergy learning platform: it watches
// the browser, answers the questions it knows, asks a model about the rest
// and learns from the results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xacan1/SynergyFuckingSystem/internal/ai"
	"github.com/xacan1/SynergyFuckingSystem/internal/browser"
	"github.com/xacan1/SynergyFuckingSystem/internal/config"
	"github.com/xacan1/SynergyFuckingSystem/internal/hotkey"
	"github.com/xacan1/SynergyFuckingSystem/internal/logging"
	"github.com/xacan1/SynergyFuckingSystem/internal/parser"
	"github.com/xacan1/SynergyFuckingSystem/internal/store"
)

var (
	cfgPath      string
	settingsPath string
	logLevel     string
	logger       *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sfs",
	Short:         "Automated test answering for the Synergy learning platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.NewLogger(logLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBot,
}

var proxyAddCmd = &cobra.Command{
	Use:   "proxy-add <ip> <port> [user] [password]",
	Short: "Register a proxy in the shared pool",
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("port %q is not a number", args[1])
		}
		p := store.Proxy{IP: args[0], Port: port}
		if len(args) > 2 {
			p.User = args[2]
		}
		if len(args) > 3 {
			p.Password = args[3]
		}
		st, err := store.Open(cfg.Store.Path, logger.Sugar())
		if err != nil {
			return err
		}
		defer st.Close()
		return st.AddProxy(p)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the yaml configuration")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "settings.cfg", "path to the run settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.AddCommand(proxyAddCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log := logger.Sugar()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var proxy *store.Proxy
	if settings.UseProxy {
		proxy, err = st.AcquireProxy()
		if err != nil {
			return fmt.Errorf("proxy pool: %w", err)
		}
		defer func() {
			if err := st.ReleaseProxy(proxy); err != nil {
				log.Warnw("proxy not released", "error", err)
			}
		}()
		log.Infow("proxy leased", "addr", proxy.Addr())
	}

	var resolver parser.Resolver
	if settings.UseAI || settings.UseOnlyAISearch {
		resolver, err = ai.New(cfg.AI, settings.NameAI)
		if err != nil {
			return err
		}
	}

	sess, err := browser.Start(ctx, cfg.Browser, proxy, log)
	if err != nil {
		return err
	}
	defer sess.Shutdown()

	g, gctx := errgroup.WithContext(ctx)

	var toggles <-chan struct{}
	if settings.UseHotkey {
		listener := hotkey.New()
		toggles = listener.Toggles()
		g.Go(func() error { return listener.Run(gctx) })
		log.Info("manual override on SIGUSR1")
	}

	openLog := func(student, discipline string) (parser.RunLogger, string, error) {
		rl, err := logging.Open(cfg.Logging.RunLogDir, student, discipline)
		if err != nil {
			return nil, "", err
		}
		return rl, rl.Path(), nil
	}

	engine := parser.NewEngine(st, resolver, log, parser.EngineConfig{
		OnlyAI: settings.UseOnlyAISearch,
	})
	machine := parser.NewMachine(sess.Page(), engine, parser.NewVerifier(st, log), log,
		openLog, toggles, parser.MachineConfig{
			FakeErrors:  settings.FakeErrors,
			AnswerPause: parser.ClampAnswerPause(time.Duration(settings.TimeoutForAnswer) * time.Second),
		})

	sess.OnLoad(gctx, machine.OnPageLoad)
	if err := sess.Navigate(cfg.Browser.StartURL); err != nil {
		return err
	}
	log.Infow("running", "session", sess.ID, "start", cfg.Browser.StartURL)

	<-gctx.Done()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shut down")
	return nil
}
