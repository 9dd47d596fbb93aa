package cmd

import (
	"context"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	ver "github.com/redesblock/stash"
	"github.com/redesblock/stash/core/api"
	"github.com/redesblock/stash/core/debugapi"
	"github.com/redesblock/stash/core/engine"
	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/syncer"
	"github.com/redesblock/stash/core/tracing"
)

func (c *command) initStartCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the stash node",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}
			if err := c.bindFlags(cmd); err != nil {
				return err
			}

			var logger logging.Logger
			switch v := strings.ToLower(c.config.GetString(optionNameVerbosity)); v {
			case "0", "silent":
				logger = logging.New(os.Stdout, 0)
			case "1", "error":
				logger = logging.New(os.Stdout, logrus.ErrorLevel)
			case "2", "warn":
				logger = logging.New(os.Stdout, logrus.WarnLevel)
			case "3", "info":
				logger = logging.New(os.Stdout, logrus.InfoLevel)
			case "4", "debug":
				logger = logging.New(os.Stdout, logrus.DebugLevel)
			case "5", "trace":
				logger = logging.New(os.Stdout, logrus.TraceLevel)
			default:
				return fmt.Errorf("unknown verbosity level %q", v)
			}

			logger.Infof("version: %v", ver.Version)

			tracer, tracerCloser, err := tracing.NewTracer(&tracing.Options{
				Enabled:     c.config.GetBool(optionNameTracingEnabled),
				Endpoint:    c.config.GetString(optionNameTracingEndpoint),
				ServiceName: "stash",
			})
			if err != nil {
				return fmt.Errorf("tracer: %w", err)
			}
			defer tracerCloser.Close()

			transport := syncer.NewHTTPTransport(c.config.GetString(optionNameRemoteEndpoint), nil)

			e, err := engine.New(engine.Options{
				DataDir:         c.config.GetString(optionNameDataDir),
				Transport:       transport,
				Online:          c.config.GetBool(optionNameOnline),
				MaxRetries:      c.config.GetInt(optionNameMaxRetries),
				CleanupInterval: c.config.GetDuration(optionNameCleanupInterval),
			}, logger)
			if err != nil {
				return fmt.Errorf("engine: %w", err)
			}
			defer e.Close()

			apiService := api.New(e, c.config.GetStringSlice(optionNameCORSAllowedOrigins), logger, tracer)

			apiAddr := c.config.GetString(optionNameAPIAddr)
			apiListener, err := net.Listen("tcp", apiAddr)
			if err != nil {
				return fmt.Errorf("api listener: %w", err)
			}
			apiServer := &http.Server{Handler: apiService, ErrorLog: stdlog.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)}
			go func() {
				logger.Infof("api address: %s", apiListener.Addr())
				if err := apiServer.Serve(apiListener); err != nil && err != http.ErrServerClosed {
					logger.Errorf("api server: %v", err)
				}
			}()

			var debugServer *http.Server
			if c.config.GetBool(optionNameDebugAPIEnable) {
				debugService := debugapi.New(e, logger)
				debugService.MustRegisterMetrics(e.Metrics()...)
				debugService.MustRegisterMetrics(apiService.Metrics()...)

				debugAPIAddr := c.config.GetString(optionNameDebugAPIAddr)
				debugListener, err := net.Listen("tcp", debugAPIAddr)
				if err != nil {
					return fmt.Errorf("debug api listener: %w", err)
				}
				debugServer = &http.Server{Handler: debugService, ErrorLog: stdlog.New(logger.WriterLevel(logrus.ErrorLevel), "", 0)}
				go func() {
					logger.Infof("debug api address: %s", debugListener.Addr())
					if err := debugServer.Serve(debugListener); err != nil && err != http.ErrServerClosed {
						logger.Errorf("debug api server: %v", err)
					}
				}()
			}

			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			sig := <-interruptChannel
			logger.Debugf("received signal: %v", sig)
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if debugServer != nil {
				if err := debugServer.Shutdown(ctx); err != nil {
					logger.Errorf("debug api shutdown: %v", err)
				}
			}
			if err := apiServer.Shutdown(ctx); err != nil {
				logger.Errorf("api shutdown: %v", err)
			}
			return nil
		},
	}

	c.setAllFlags(cmd)
	c.root.AddCommand(cmd)
	return nil
}
