package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/parcelbooking/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Calendar  *CalendarHandler
	Shipments *ShipmentHandler
	Wizard    *WizardHandler
}

func NewRouter(cfg config.HTTPConfig, jwtSecret string, logger *zap.Logger, h Handlers) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestLogger(logger), Recovery(logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	if cfg.RatePerMinute > 0 {
		r.Use(RateLimit(cfg.RatePerMinute, cfg.Burst, logger))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	h.Calendar.Register(v1.Group("/calendar"))

	protected := v1.Group("")
	protected.Use(JWTAuth(jwtSecret))
	h.Shipments.Register(protected.Group("/shipments"))
	h.Wizard.Register(protected.Group("/wizard"))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
