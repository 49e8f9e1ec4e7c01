// Package cli provides the command-line interface for research-hub.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgellow/research-hub/internal/log"
)

// BuildVersion is set at link time
var BuildVersion = "dev"

// RootCmd is the root command for the CLI.
var RootCmd = &cobra.Command{
	Use:   "research-hub",
	Short: "Research Intelligence Hub - ORCID sign-in and researcher profiles",
	Long: `Run the research hub backend, or sign in with ORCID and manage your
researcher profile against a running backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		return log.SetLogLevel(logLevel)
	},
}

// Global flags
var (
	logLevel string
	envFile  string
)

// Command flags
var (
	serveConfig  string
	storeConfig  string
	loginForce   bool
	queryTypes   []string
	profileORCID string
)

// Profile save flags
var (
	saveInterests   string
	saveInstitution string
	saveDepartment  string
)

// Command definitions
var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("research-hub version %s\n", BuildVersion)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the backend",
		Long: `Run the backend HTTP server: public OAuth configuration, the ORCID
code exchange, the profile store and the query relay.`,
		Example: `  research-hub serve --config config.json`,
		RunE:    runServe,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Create and check backend configuration files",
	}

	configInitCmd = &cobra.Command{
		Use:     "init <path>",
		Short:   "Write a starter configuration file",
		Args:    cobra.ExactArgs(1),
		Example: `  research-hub config init config.json`,
		RunE:    runConfigInit,
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file and report errors and warnings.

The command fails when any error or warning is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfigValidate,
	}

	storeCmd = &cobra.Command{
		Use:   "store",
		Short: "Inspect the backend profile store",
	}

	storeListCmd = &cobra.Command{
		Use:     "list",
		Short:   "List every stored profile",
		Example: `  research-hub store list --config config.json`,
		RunE:    runStoreList,
	}

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Sign in with ORCID",
		Long: `Sign in with ORCID.

Opens the ORCID authorization page in your browser and waits for ORCID to
redirect back to the local receiver. The receiver listens on the redirect
URI the backend publishes.

Environment:
  RESEARCH_HUB_URL            Backend URL (default http://localhost:8080)
  RESEARCH_HUB_CACHE          Local cache file
  RESEARCH_HUB_OPEN_BROWSER   Open the browser automatically (default true)
  RESEARCH_HUB_LOGIN_TIMEOUT  How long to wait for the redirect (default 5m)`,
		RunE: runLogin,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached session",
		RunE:  runLogout,
	}

	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in researcher",
		RunE:  runWhoami,
	}

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Show or update your researcher profile",
	}

	profileShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show a researcher profile",
		Long: `Show a researcher profile.

The backend copy is preferred. When the backend cannot be reached the last
local copy is shown instead.`,
		RunE: runProfileShow,
	}

	profileSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save your researcher profile",
		Long: `Save your researcher profile to the backend.

Only the fields given on the command line change; the others keep their
current value.`,
		Example: `  research-hub profile save --interests "Psychoceramics" --institution "Brown University"`,
		RunE:    runProfileSave,
	}

	queryCmd = &cobra.Command{
		Use:   "query <text>",
		Short: "Run a research query",
		Args:  cobra.MinimumNArgs(1),
		Example: `  research-hub query "cracked pots" --type summary --type papers
  research-hub query "cracked pots" --type summary,papers`,
		RunE: runQuery,
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local cache",
	}

	cacheListCmd = &cobra.Command{
		Use:   "list",
		Short: "List cached entries",
		RunE:  runCacheList,
	}
)

// Init registers commands and flags.
func Init() {
	RootCmd.Version = BuildVersion
	RootCmd.SetVersionTemplate("research-hub version {{.Version}}\n")

	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file read by client commands")

	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "", "Path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")

	storeListCmd.Flags().StringVarP(&storeConfig, "config", "c", "", "Path to config file (required)")
	_ = storeListCmd.MarkFlagRequired("config")

	loginCmd.Flags().BoolVarP(&loginForce, "force", "f", false, "Sign in again even when a session is cached")

	profileShowCmd.Flags().StringVar(&profileORCID, "orcid", "", "ORCID iD to show (defaults to the signed-in researcher)")

	profileSaveCmd.Flags().StringVarP(&saveInterests, "interests", "i", "", "Research interests")
	profileSaveCmd.Flags().StringVar(&saveInstitution, "institution", "", "Institution")
	profileSaveCmd.Flags().StringVarP(&saveDepartment, "department", "d", "", "Department")

	queryCmd.Flags().StringSliceVarP(&queryTypes, "type", "t", nil, "Output type (can be repeated or comma separated)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	storeCmd.AddCommand(storeListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSaveCmd)
	cacheCmd.AddCommand(cacheListCmd)

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(storeCmd)
	RootCmd.AddCommand(loginCmd)
	RootCmd.AddCommand(logoutCmd)
	RootCmd.AddCommand(whoamiCmd)
	RootCmd.AddCommand(profileCmd)
	RootCmd.AddCommand(queryCmd)
	RootCmd.AddCommand(cacheCmd)
}
