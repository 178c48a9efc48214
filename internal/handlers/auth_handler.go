package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/authflow"
	"github.com/shopkite/shopify-connect/internal/config"
	"github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/monitoring"
	"github.com/shopkite/shopify-connect/internal/nonce"
)

// HandlerConfig groups dependencies for the HTTP surface.
type HandlerConfig struct {
	Config       *config.Config
	Orchestrator *authflow.Orchestrator
	Nonces       *nonce.Service
	Publisher    *events.Publisher
	Metrics      *monitoring.Recorder
	Logger       zerolog.Logger
}

var beginShopPattern = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9\-]*\.myshopify\.com$`)

// noCache disables caching on auth responses; they carry fresh tokens.
func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Pragma", "no-cache")
}

// RegisterAuthRoutes registers the OAuth begin and complete endpoints.
func RegisterAuthRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validatorv10.New()

	r.GET("/auth/shopify", func(c *gin.Context) {
		noCache(c)

		callbackURL := c.Query("callback-url")
		shop := c.Query("shop")
		perUser := c.Query("per-user")

		if callbackURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "'callback-url' parameter missing"})
			return
		}
		if shop == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "'shop' parameter missing"})
			return
		}
		if !beginShopPattern.MatchString(shop) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "'shop' parameter must end with .myshopify.com and may only contain a-z, 0-9, - and ."})
			return
		}

		now := time.Now()
		state := uuid.NewString()

		token, err := cfg.Nonces.Issue(shop, state, now, nonce.DefaultValidity)
		if err != nil {
			cfg.Logger.Error().Err(err).Msg("issue begin token")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			return
		}

		option := ""
		if perUser == "true" {
			option = "&option=per-user"
		}
		authURL := fmt.Sprintf(
			"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s%s",
			shop,
			url.QueryEscape(cfg.Config.APIKey),
			url.QueryEscape(strings.ReplaceAll(cfg.Config.Scope, ":", ",")),
			url.QueryEscape(callbackURL),
			url.QueryEscape(state),
			option,
		)

		c.JSON(http.StatusOK, gin.H{
			"authUrl": authURL,
			"token":   token,
		})
	})

	r.POST("/auth/shopify/complete", func(c *gin.Context) {
		noCache(c)
		ctx := c.Request.Context()

		var req authflow.CompletionRequest
		if err := BindAndValidate(c, &req, v); err != nil {
			cfg.Metrics.Count(ctx, monitoring.MetricAuthRejected, nil)
			return
		}

		result, err := cfg.Orchestrator.Complete(ctx, req)
		if err != nil {
			var rejection *authflow.RejectionError
			if errors.As(err, &rejection) {
				cfg.Metrics.Count(ctx, monitoring.MetricAuthRejected, nil)
				c.JSON(http.StatusBadRequest, gin.H{"message": rejection.Reason})
				return
			}
			// Internal failures are logged in full and surfaced opaquely.
			cfg.Logger.Error().Err(err).Msg("auth completion failed")
			cfg.Metrics.Count(ctx, monitoring.MetricAuthFailed, nil)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			return
		}

		cfg.Metrics.Count(ctx, monitoring.MetricAuthCompleted, nil)
		c.JSON(http.StatusOK, result)
	})
}
