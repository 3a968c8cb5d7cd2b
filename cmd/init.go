package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup for neardup configuration",
	Long:  `Creates a default configuration file with guided prompts.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Welcome to neardup setup!")
	fmt.Fprintln(out, "This will create a configuration file for you.")
	fmt.Fprintln(out)

	configPath := cfgFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Config file already exists at %s\n", configPath)
		fmt.Fprint(out, "Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprint(out, "GitHub App ID (or press Enter to use a token): ")
	appID, _ := reader.ReadString('\n')
	appID = strings.TrimSpace(appID)

	var keyPath string
	if appID != "" {
		fmt.Fprint(out, "GitHub private key path: ")
		keyPath, _ = reader.ReadString('\n')
		keyPath = strings.TrimSpace(keyPath)
	}

	fmt.Fprint(out, "Embedding provider (openai/ollama) [openai]: ")
	embedProvider, _ := reader.ReadString('\n')
	embedProvider = strings.TrimSpace(embedProvider)
	if embedProvider == "" {
		embedProvider = "openai"
	}

	fmt.Fprint(out, "LLM provider for cluster labels (openai/ollama/anthropic) [openai]: ")
	llmProvider, _ := reader.ReadString('\n')
	llmProvider = strings.TrimSpace(llmProvider)
	if llmProvider == "" {
		llmProvider = "openai"
	}

	config := buildConfigYAML(appID, keyPath, embedProvider, llmProvider)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", configPath)
	fmt.Fprintln(out, "Edit the file to add API keys and customize settings.")
	return nil
}

func buildConfigYAML(appID, keyPath, embedProvider, llmProvider string) string {
	var b strings.Builder

	b.WriteString("# neardup configuration\n")
	b.WriteString("# ${VAR} placeholders are read from the environment.\n\n")

	b.WriteString("github:\n")
	if appID != "" {
		b.WriteString("  auth: app\n")
		b.WriteString(fmt.Sprintf("  app_id: %s\n", appID))
		if keyPath != "" {
			b.WriteString(fmt.Sprintf("  private_key_path: %s\n", keyPath))
		} else {
			b.WriteString("  # private_key_path: /path/to/private-key.pem\n")
		}
		b.WriteString("  # installation_id: YOUR_INSTALLATION_ID\n")
	} else {
		b.WriteString("  # auth: token\n")
		b.WriteString("  # token: YOUR_GITHUB_TOKEN\n")
	}
	b.WriteString("\n")

	b.WriteString("providers:\n")
	b.WriteString("  embedding:\n")
	b.WriteString(fmt.Sprintf("    type: %s\n", embedProvider))
	embedModel, embedAPIKey := embeddingProviderDefaults(embedProvider)
	b.WriteString(fmt.Sprintf("    model: %s\n", embedModel))
	b.WriteString(fmt.Sprintf("    api_key: %s\n", embedAPIKey))
	b.WriteString("  llm:\n")
	b.WriteString(fmt.Sprintf("    type: %s\n", llmProvider))
	llmModel, llmAPIKey := llmProviderDefaults(llmProvider)
	b.WriteString(fmt.Sprintf("    model: %s\n", llmModel))
	b.WriteString(fmt.Sprintf("    api_key: %s\n", llmAPIKey))
	b.WriteString("\n")

	b.WriteString("# Every cluster setting can be overridden with NEARDUP_<NAME>,\n")
	b.WriteString("# e.g. NEARDUP_MIN_SIMILARITY=0.8.\n")
	b.WriteString("cluster:\n")
	b.WriteString("  min_similarity: 0.70\n")
	b.WriteString("  min_cluster_size: 5\n")
	b.WriteString("  chunk_size: 1000\n")
	b.WriteString("  strategy: batched\n")
	b.WriteString("  # workers: 8\n")
	b.WriteString("\n")

	b.WriteString("embed:\n")
	b.WriteString("  batch_size: 1000\n")
	b.WriteString("  max_chars: 8000\n")
	b.WriteString("  max_attempts: 3\n")
	b.WriteString("  workers: 4\n")
	b.WriteString("  request_timeout: 30s\n")
	b.WriteString("\n")

	b.WriteString("phatic:\n")
	b.WriteString("  similarity_threshold: 0.5\n")
	b.WriteString("  # examples_path: ~/.neardup/phatic.txt\n")
	b.WriteString("\n")

	b.WriteString("# Webhooks used by 'neardup cluster --notify'.\n")
	b.WriteString("notify:\n")
	b.WriteString("  # slack_webhook: https://hooks.slack.com/services/YOUR/WEBHOOK\n")
	b.WriteString("  # discord_webhook: https://discord.com/api/webhooks/YOUR/WEBHOOK\n")
	b.WriteString("\n")

	b.WriteString("store:\n")
	b.WriteString("  path: ~/.neardup/neardup.db\n")

	return b.String()
}

// embeddingProviderDefaults returns the default model and api_key placeholder
// for the given embedding provider type.
func embeddingProviderDefaults(provider string) (model, apiKey string) {
	switch provider {
	case "ollama":
		return "nomic-embed-text", "# not required for ollama"
	default: // openai
		return "text-embedding-3-small", "${OPENAI_API_KEY}"
	}
}

// llmProviderDefaults returns the default model and api_key placeholder
// for the given LLM provider type.
func llmProviderDefaults(provider string) (model, apiKey string) {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-20250514", "${ANTHROPIC_API_KEY}"
	case "ollama":
		return "llama3", "# not required for ollama"
	default: // openai
		return "gpt-4o-mini", "${OPENAI_API_KEY}"
	}
}
