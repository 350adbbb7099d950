package cmd

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/althingi/internal/handlers"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/spf13/cobra"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only dashboard server",
	Long:  `Start the web server showing session activity metrics and ingest runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flag wins over PORT and config
		if port == "" {
			port = cfg.Server.Port
		}

		ctx, cancel := signalContext()
		defer cancel()

		st, db, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		app := fiber.New(fiber.Config{
			AppName: "Althingi",
		})

		app.Use(fiberlogger.New())

		handlers.Register(app, service.NewActivityService(st), st, logger)

		go func() {
			<-ctx.Done()
			_ = app.Shutdown()
		}()

		logger.Infof("Starting server on :%s", port)
		return app.Listen(":" + port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to run the server on (default from config or PORT)")
}
