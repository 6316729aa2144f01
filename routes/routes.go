package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/handlers"
)

// SetupSearchRoutes wires the search pipeline under the given group.
func SetupSearchRoutes(rg *gin.RouterGroup, cfg *config.Config) {
	searchHandler := handlers.NewSearchHandler(cfg)

	rg.POST("/search", searchHandler.HandleSearch)
}
