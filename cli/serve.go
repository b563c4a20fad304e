package cli

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tuition-server-go/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, cfg, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	gin.SetMode(cfg.GinMode)
	router := handlers.NewRouter(handlers.NewAPIHandler(svc), cfg.AllowOrigins)

	log.Printf("Starting server on %s (store: %s)", cfg.ServerAddr, cfg.StoreDriver)
	return router.Run(cfg.ServerAddr)
}
