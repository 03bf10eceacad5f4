package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"devops_proxy/internal/config"
	"devops_proxy/internal/logger"
	"devops_proxy/internal/notify"
	"devops_proxy/internal/service/azuredevops"
	"devops_proxy/internal/storage"
)

// BuildClient constructs the real Azure DevOps client from configuration,
// fetching the PAT from the S3 credential store when one is configured.
func BuildClient(ctx context.Context, cfg *config.Config) (azuredevops.Client, error) {
	pat := cfg.PAT
	if pat == "" && cfg.PATBucketName != "" {
		store, err := storage.NewS3CredentialStoreFromEnv(ctx, cfg.PATBucketName, cfg.PATEncryptKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create credential store: %v", err)
		}
		pat, err = store.GetPAT(ctx, cfg.Organization)
		if err != nil {
			return nil, fmt.Errorf("failed to load PAT from credential store: %v", err)
		}
	}

	return azuredevops.NewClient(cfg.Organization, pat, cfg.Project), nil
}

// BuildRouter wires the handler and its optional notifier into a gin engine.
func BuildRouter(cfg *config.Config, client azuredevops.Client) *gin.Engine {
	var notifier notify.Notifier
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID)
		logger.GetLogger().Info("slack notifications enabled")
	}

	return NewRouter(New(cfg, client, notifier))
}
