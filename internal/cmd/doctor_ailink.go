package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/ailink"
	"github.com/tutorlink/tutorlink/internal/config"
	"github.com/tutorlink/tutorlink/internal/observability"
)

var doctorAILinkModel string

var doctorAILinkCmd = &cobra.Command{
	Use:   "ailink [role]",
	Short: "Inspect provider resolution for a role",
	Long:  "Resolve a role (grading, quiz, batch, or any routing key) to a provider instance and show credential selection.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		role := ""
		if len(args) > 0 {
			role = strings.TrimSpace(args[0])
		}

		resolved, err := ailink.NewRegistry(cfg.AILink).Resolve(role, doctorAILinkModel)
		if err != nil {
			return fmt.Errorf("resolve provider: %w", err)
		}

		providerCfg := resolved.Provider
		source, routingTarget := describeAILinkResolution(cfg, role)
		logger := observability.CLILogger

		logger.Info("Provider Resolution")
		logger.Info(fmt.Sprintf("  Role:         %s", displayRole(role)))
		logger.Info(fmt.Sprintf("  Source:       %s", source))
		if routingTarget != "" {
			logger.Info(fmt.Sprintf("  Routing:      %s -> %s", role, routingTarget))
		}
		logger.Info(fmt.Sprintf("  Provider ID:  %s", resolved.ProviderID))
		logger.Info(fmt.Sprintf("  ai_provider:  %s", providerCfg.AIProvider))
		logger.Info(fmt.Sprintf("  base_url:     %s", providerCfg.BaseURL))
		logger.Info(fmt.Sprintf("  model:        %s", resolved.Model))
		logger.Info(fmt.Sprintf("  model_source: %s", modelSource(providerCfg, role, doctorAILinkModel)))
		logger.Info("")

		policy := strings.TrimSpace(providerCfg.SelectionPolicy)
		if policy == "" {
			policy = "priority"
		}
		logger.Info("Credential Selection")
		logger.Info(fmt.Sprintf("  selection_policy:   %s", policy))
		if strings.TrimSpace(providerCfg.DefaultCredential) != "" {
			logger.Info(fmt.Sprintf("  default_credential: %s", providerCfg.DefaultCredential))
		}
		logger.Info(fmt.Sprintf("  selected.label:     %s", resolved.Credential.Label))
		logger.Info(fmt.Sprintf("  selected.priority:  %d", resolved.Credential.Priority))
		if strings.TrimSpace(resolved.Credential.APIKey) != "" {
			logger.Info("  selected.api_key:   (set)")
		} else {
			logger.Info("  selected.api_key:   (not set)")
			logger.Warn("Selected credential has no API key", zap.String("provider", resolved.ProviderID))
		}
		return nil
	},
}

func init() {
	doctorCmd.AddCommand(doctorAILinkCmd)
	doctorAILinkCmd.Flags().StringVar(&doctorAILinkModel, "model", "", "model override")
}

func displayRole(role string) string {
	if role == "" {
		return "(default)"
	}
	return role
}

// describeAILinkResolution mirrors the registry's resolution order:
// routing, provider roles, default provider, then the only enabled provider.
func describeAILinkResolution(cfg *config.Config, role string) (source string, routingTarget string) {
	if cfg == nil {
		return "config missing", ""
	}

	role = strings.TrimSpace(role)
	if role != "" {
		if target := strings.TrimSpace(cfg.AILink.Routing[role]); target != "" {
			return "routing", target
		}
		for _, providerCfg := range cfg.AILink.Providers {
			if !providerCfg.Enabled {
				continue
			}
			for _, r := range providerCfg.Roles {
				if strings.EqualFold(strings.TrimSpace(r), role) {
					return "roles", ""
				}
			}
		}
	}

	if strings.TrimSpace(cfg.AILink.DefaultProvider) != "" {
		return "default_provider", ""
	}

	enabled := 0
	for _, providerCfg := range cfg.AILink.Providers {
		if providerCfg.Enabled {
			enabled++
		}
	}
	if enabled == 1 {
		return "only_enabled_provider", ""
	}
	return "unknown", ""
}

func modelSource(providerCfg ailink.ProviderInstanceConfig, role, override string) string {
	switch {
	case strings.TrimSpace(override) != "":
		return "cli_override"
	case role != "" && strings.TrimSpace(providerCfg.Models[role]) != "":
		return "provider.models." + role
	case strings.TrimSpace(providerCfg.Models["default"]) != "":
		return "provider.models.default"
	default:
		return "unknown"
	}
}
