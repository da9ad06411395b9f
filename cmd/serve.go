package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/ruler/internal/logger"
	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/KaramelBytes/ruler/internal/pipeline"
	"github.com/KaramelBytes/ruler/internal/server"
	"github.com/KaramelBytes/ruler/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		if c.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		level := c.LogLevel
		if debug {
			level = "debug"
		}
		log, err := logger.NewForEnvironment(c.Environment, level, c.LogFormat)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store := session.NewStore(session.Options{
			TTL:               c.SessionTTL(),
			MemoSize:          c.MemoSize,
			DefaultConfidence: c.DefaultConfidence,
		})
		defer store.Close()

		h, err := server.NewHandler(store, pipeline.Deps{
			DefaultPath: c.SampleDataPath,
			Miner:       miner.Apriori{MinSupport: c.MinSupport, MaxLen: c.MaxItemsetLen},
			PreviewRows: c.PreviewRows,
		}, server.Options{
			MaxUploadBytes: c.MaxUploadBytes(),
			SessionSecret:  []byte(c.SessionSecret),
			SessionTTL:     c.SessionTTL(),
		}, log)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("Ruler is running",
			zap.String("address", addr),
			zap.String("sample_data", c.SampleDataPath),
		)
		return server.Serve(ctx, srv, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
