package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgellow/research-hub/internal/config"
	"github.com/dgellow/research-hub/internal/hub"
	"github.com/dgellow/research-hub/internal/localcache"
	"github.com/dgellow/research-hub/internal/log"
	"github.com/dgellow/research-hub/internal/loopback"
	"github.com/dgellow/research-hub/internal/orcid"
)

var errNotSignedIn = errors.New("not signed in, run 'research-hub login' first")

// clientEnv is one client context: the durable cache, the backend client and
// the session controller built on them.
type clientEnv struct {
	cfg        config.ClientConfig
	cache      *localcache.Store
	api        *hub.APIClient
	oauth      *hub.ConfigProvider
	controller *hub.Controller
}

func openClient() (*clientEnv, error) {
	cfg, err := config.LoadClientConfig(envFile)
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" && logLevel == "" {
		if err := log.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	path := cfg.CachePath
	if path == "" {
		if path, err = localcache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cache, err := localcache.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	api := hub.NewAPIClient(cfg.HubURL, nil)
	oauth := hub.NewConfigProvider(api)
	// State tokens live only as long as this process: one login flow.
	guard := hub.NewStateGuard(hub.NewMemoryKV())

	return &clientEnv{
		cfg:        cfg,
		cache:      cache,
		api:        api,
		oauth:      oauth,
		controller: hub.NewController(oauth, guard, api, cache),
	}, nil
}

func (e *clientEnv) Close() error {
	return e.cache.Close()
}

// pageLoad runs the page-load sequence against the backend URL, which
// carries no callback and so resumes any cached session.
func (e *clientEnv) pageLoad(ctx context.Context) (hub.Landing, error) {
	return e.controller.PageLoad(ctx, e.cfg.HubURL)
}

func (e *clientEnv) session(ctx context.Context) (hub.Session, error) {
	if _, err := e.pageLoad(ctx); err != nil {
		return hub.Session{}, err
	}
	s, ok := e.controller.Session()
	if !ok {
		return hub.Session{}, errNotSignedIn
	}
	return s, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	landing, err := env.pageLoad(ctx)
	if err != nil {
		return err
	}
	if landing.State == hub.Authenticated {
		s, _ := env.controller.Session()
		if !loginForce {
			fmt.Printf("%s Already signed in as %s (%s)\n", green("✓"), s.DisplayName, s.ORCID)
			return nil
		}
		if err := env.controller.Logout(ctx); err != nil {
			return err
		}
	}

	oauth, _ := env.oauth.Config()
	receiver, err := loopback.Listen(oauth.RedirectURI, env.controller)
	if err != nil {
		return err
	}
	defer receiver.Close(context.Background())

	authURL, err := env.controller.BeginLogin(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Sign in with ORCID at:\n  %s\n\n", cyan(authURL))
	if env.cfg.OpenBrowser {
		if err := loopback.OpenBrowser(ctx, authURL); err != nil {
			fmt.Printf("%s Could not open a browser, open the link above manually.\n", yellow("!"))
		}
	}
	fmt.Printf("Waiting for ORCID to redirect to %s ...\n", oauth.RedirectURI)

	waitCtx, cancel := context.WithTimeout(ctx, env.cfg.LoginTimeout)
	defer cancel()
	res, err := receiver.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s waiting for the ORCID redirect", env.cfg.LoginTimeout)
		}
		return err
	}
	if res.Err != nil {
		if hub.UserVisible(res.Err) {
			return res.Err
		}
		return errors.New("sign-in was not completed, please try again")
	}

	s, ok := env.controller.Session()
	if !ok {
		return errors.New("sign-in was not completed, please try again")
	}
	fmt.Printf("\n%s Signed in as %s (%s)\n", green("✓"), s.DisplayName, s.ORCID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.controller.Logout(context.Background()); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Signed out.\n", green("✓"))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := env.session(context.Background())
	if err != nil {
		return err
	}
	printSession(s)
	return nil
}

func printSession(s hub.Session) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Printf("%s\n", green(s.DisplayName))
	fmt.Printf("  %s %s\n", cyan("ORCID:"), s.ORCID)
	if s.Email != "" {
		fmt.Printf("  %s %s\n", cyan("Email:"), s.Email)
	}
	if a := formatAffiliation(s.Affiliation); a != "" {
		fmt.Printf("  %s %s\n", cyan("Affiliation:"), a)
	}
	if !s.IssuedAt.IsZero() {
		fmt.Printf("  %s %s\n", cyan("Signed in:"), s.IssuedAt.Local().Format("2006-01-02 15:04"))
	}
}

// formatAffiliation renders "Role, Department, Organization" skipping blanks.
func formatAffiliation(a *orcid.Affiliation) string {
	if a == nil {
		return ""
	}
	var parts []string
	for _, p := range []string{a.Role, a.Department, a.Organization} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	orcidID := profileORCID
	if orcidID == "" {
		s, err := env.session(ctx)
		if err != nil {
			return err
		}
		orcidID = s.ORCID
	}

	record, err := hub.NewProfileStore(env.api, env.cache).Load(ctx, orcidID)
	if err != nil {
		return err
	}
	printProfile(record)
	return nil
}

func printProfile(r hub.ProfileRecord) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("%s %s\n", cyan("ORCID:"), r.ORCID)
	fmt.Printf("  %s %s\n", cyan("Research interests:"), orDash(r.Fields.ResearchInterests))
	fmt.Printf("  %s %s\n", cyan("Institution:"), orDash(r.Fields.Institution))
	fmt.Printf("  %s %s\n", cyan("Department:"), orDash(r.Fields.Department))
	if !r.LastUpdated.IsZero() {
		fmt.Printf("  %s %s\n", cyan("Last updated:"), r.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	if r.Origin == hub.OriginLocal {
		fmt.Printf("\n%s Shown from the local cache.\n", yellow("!"))
	}
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	if !profileFlagsChanged(cmd) {
		return errors.New("nothing to save, pass --interests, --institution or --department")
	}

	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	s, err := env.session(ctx)
	if err != nil {
		return err
	}

	store := hub.NewProfileStore(env.api, env.cache)
	current, err := store.Load(ctx, s.ORCID)
	if err != nil {
		return err
	}
	fields := applyProfileFlags(cmd, current.Fields)
	if err := store.Save(ctx, s.ORCID, fields, &s); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Profile saved for %s\n", green("✓"), s.ORCID)
	return nil
}

func profileFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"interests", "institution", "department"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// applyProfileFlags overlays the flags given on the command line onto fields.
func applyProfileFlags(cmd *cobra.Command, fields hub.ProfileFields) hub.ProfileFields {
	if cmd.Flags().Changed("interests") {
		fields.ResearchInterests = strings.TrimSpace(saveInterests)
	}
	if cmd.Flags().Changed("institution") {
		fields.Institution = strings.TrimSpace(saveInstitution)
	}
	if cmd.Flags().Changed("department") {
		fields.Department = strings.TrimSpace(saveDepartment)
	}
	return fields
}

func runQuery(cmd *cobra.Command, args []string) error {
	types := parseOutputTypes(queryTypes)
	if len(types) == 0 {
		return errors.New("at least one --type is required")
	}

	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.api.Query(context.Background(), strings.Join(args, " "), types)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		out.Reset()
		out.Write(result)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(os.Stdout)
	return err
}

// parseOutputTypes trims, splits on commas and de-duplicates, keeping order.
func parseOutputTypes(values []string) []string {
	var types []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" || slices.Contains(types, t) {
				continue
			}
			types = append(types, t)
		}
	}
	return types
}

func runCacheList(cmd *cobra.Command, args []string) error {
	env, err := openClient()
	if err != nil {
		return err
	}
	defer env.Close()

	keys, err := env.cache.Keys(context.Background(), "")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("Cache is empty.")
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
