package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/circdesk/loanrules/internal/core/auth"
	"github.com/circdesk/loanrules/internal/core/config"
	"github.com/circdesk/loanrules/internal/core/db"
	"github.com/circdesk/loanrules/internal/types"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage tenant API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint an API key for a tenant and store its HMAC",
	Args:  cobra.NoArgs,
	RunE:  runKeysCreate,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's API keys",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke API_KEY_ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd)

	keysCreateCmd.Flags().String("tenant", "", "tenant the key authenticates as")
	keysCreateCmd.Flags().String("name", "default", "label for the key")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret id to bind the key to (default: lowest configured)")
	keysCreateCmd.MarkFlagRequired("tenant")

	keysListCmd.Flags().String("tenant", "", "tenant whose keys to list")
	keysListCmd.MarkFlagRequired("tenant")
}

// pickSecret returns the requested secret, or the lowest secret id when
// none is requested so that repeated runs pick the same one.
func pickSecret(secrets map[string][]byte, secretID string) (string, []byte, error) {
	if len(secrets) == 0 {
		return "", nil, fmt.Errorf("no HMAC secrets configured (set LR_HMAC_SECRET environment variable)")
	}
	if secretID != "" {
		secret, ok := secrets[secretID]
		if !ok {
			return "", nil, fmt.Errorf("secret id %s not configured", secretID)
		}
		return secretID, secret, nil
	}

	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], secrets[ids[0]], nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	tenant, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	requested, _ := cmd.Flags().GetString("secret-id")

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	secretID, secret, err := pickSecret(secrets, requested)
	if err != nil {
		return err
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	apiKey, hash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}
	key, err := db.NewAPIKeyStore(queries).CreateAPIKey(cmd.Context(), types.TenantID(tenant), name, hash)
	if err != nil {
		return err
	}

	logger.Info("created api key", "api_key_id", key.ID, "tenant_id", key.TenantID, "secret_id", secretID)
	// The key itself is shown once and never stored.
	fmt.Fprintln(cmd.OutOrStdout(), apiKey)
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	tenant, _ := cmd.Flags().GetString("tenant")

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	keys, err := db.NewAPIKeyStore(queries).ListAPIKeys(cmd.Context(), types.TenantID(tenant))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED\tREVOKED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.ID, k.Name, k.CreatedAt.Format(time.RFC3339), formatOptionalTime(k.LastUsedAt), formatOptionalTime(k.RevokedAt))
	}
	return w.Flush()
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	id := types.APIKeyID(args[0])
	if err := db.NewAPIKeyStore(queries).RevokeAPIKey(cmd.Context(), id); err != nil {
		return fmt.Errorf("revoke %s: %w", id, err)
	}
	logger.Info("revoked api key", "api_key_id", id)
	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
