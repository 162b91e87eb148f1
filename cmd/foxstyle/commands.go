package main

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/foxstyle/internal/config"
	"github.com/kalambet/foxstyle/internal/customizer"
	"github.com/kalambet/foxstyle/internal/filestore"
	"github.com/kalambet/foxstyle/internal/prefs"
	"github.com/kalambet/foxstyle/internal/profile"
)

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List Firefox profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		profiles, err := fetchProfiles(cmd.Context(), client)
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No Firefox profiles found.")
			return nil
		}
		for _, p := range profiles {
			fmt.Printf("%s  chrome:%s  %s\n", colorize(colorCyan, p.Name), yesNo(p.HasChromeDir), p.RootPath)
		}
		return nil
	},
}

func fetchProfiles(ctx context.Context, client *apiClient) ([]profile.Profile, error) {
	resp, err := client.get(ctx, "/api/profiles")
	if err != nil {
		return nil, err
	}
	var profiles []profile.Profile
	if err := decodeJSON(resp, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// --- enable ---

var enableCmd = &cobra.Command{
	Use:   "enable [profile]",
	Short: "Enable userChrome.css support for a profile (or --all)",
	Long: `Enable userChrome.css and userContent.css loading by setting
toolkit.legacyUserProfileCustomizations.stylesheets to true.

Examples:
  foxstyle enable abcd1234.default-release
  foxstyle enable --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("either a profile name or --all is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if all {
			return enableAll(cmd.Context(), client)
		}

		resp, err := client.post(cmd.Context(), "/api/firefox/enable-userchrome", map[string]string{"profileName": args[0]})
		if err != nil {
			return err
		}
		var res customizer.EnableResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printOutcome(args[0], res.Outcome)
		if res.FirefoxRunning {
			printWarning("Firefox is running; restart it to apply the change")
		}
		return nil
	},
}

func init() {
	enableCmd.Flags().Bool("all", false, "enable every discovered profile")
}

func enableAll(ctx context.Context, client *apiClient) error {
	resp, err := client.post(ctx, "/api/firefox/enable-userchrome-all", nil)
	if err != nil {
		return err
	}
	var res customizer.EnableAllResult
	if err := decodeJSON(resp, &res); err != nil {
		return err
	}
	for _, r := range res.Results {
		if r.Outcome != nil {
			printOutcome(r.Profile, *r.Outcome)
			continue
		}
		printError("%s: %s", r.Profile, r.Error)
	}
	printStatus("Summary", "%d total, %d enabled, %d failed", res.Summary.Total, res.Summary.Enabled, res.Summary.Failed)
	return nil
}

func printOutcome(name string, out prefs.Outcome) {
	printSuccess("%s: %s", name, out.Message)
	for _, f := range out.FilesModified {
		printStatus("Modified", "%s", f)
	}
	if out.BackupCreated {
		printStatus("Backup", "%s", out.BackupPath)
	}
}

// --- check ---

var checkCmd = &cobra.Command{
	Use:   "check <profile>",
	Short: "Show whether custom stylesheets are enabled for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/firefox/check-userchrome/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var state prefs.State
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}
		printStatus("Enabled", "%s", yesNo(state.Enabled))
		printStatus("Details", "%s", state.Details)
		if state.ConflictingSettings {
			printWarning("prefs.js and user.js disagree; user.js wins when Firefox starts")
		}
		return nil
	},
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate <profile>",
	Short: "Inspect a profile's files and permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		name := url.PathEscape(args[0])

		resp, err := client.get(cmd.Context(), "/api/firefox/validate/"+name)
		if err != nil {
			return err
		}
		var v profile.Validation
		if err := decodeJSON(resp, &v); err != nil {
			return err
		}

		printStatus("Path", "%s", v.Path)
		printStatus("prefs.js", "%s", yesNo(v.Checks.PrefsExists))
		printStatus("chrome/", "%s", yesNo(v.Checks.ChromeDirectoryExists))
		printStatus("userChrome.css", "%s", yesNo(v.Checks.UserChromeExists))
		printStatus("userContent.css", "%s", yesNo(v.Checks.UserContentExists))
		printStatus("user.js", "%s", yesNo(v.Checks.UserJSExists))
		printStatus("Writable", "%s", yesNo(v.Checks.IsWritable))

		if resp, err := client.get(cmd.Context(), "/api/firefox/version/"+name); err == nil {
			var ver profile.VersionInfo
			if decodeJSON(resp, &ver) == nil {
				printStatus("Firefox", "%s (%s)", ver.Version, ver.Source)
			}
		}

		for _, r := range v.Recommendations {
			printWarning("%s", r)
		}
		if v.Valid {
			printSuccess("Profile is ready for customization")
		}
		return nil
	},
}

// --- backups ---

var backupsCmd = &cobra.Command{
	Use:   "backups <profile>",
	Short: "List preference file backups of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/firefox/backups/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var res customizer.ProfileBackups
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		if len(res.Backups) == 0 {
			fmt.Println("No backups found.")
			return nil
		}
		for _, b := range res.Backups {
			fmt.Printf("%s  %8s  %s\n", colorize(colorCyan, b.Name), humanize.Bytes(uint64(b.Size)), humanize.Time(b.CreatedAt))
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <profile>",
	Short: "Show recent preference changes of a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := fmt.Sprintf("/api/firefox/history/%s?limit=%d", url.PathEscape(args[0]), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var entries []customizer.HistoryEntry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No changes recorded.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-14s  %-16s  %s\n", humanize.Time(e.CreatedAt), colorize(colorBold, e.Action), e.Message)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries to show")
}

// --- userjs ---

var userJSCmd = &cobra.Command{
	Use:   "userjs <profile>",
	Short: "Write a user.js with the stylesheet preferences",
	Long: `Write a user.js into the profile with the default customization
preferences. An existing user.js is backed up first.

Examples:
  foxstyle userjs abcd1234.default-release
  foxstyle userjs abcd1234.default-release --pref browser.compactmode.show=true`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetStringArray("pref")
		extra, err := parsePrefs(raw)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		body := map[string]any{"profileName": args[0], "additionalPrefs": extra}
		resp, err := client.post(cmd.Context(), "/api/firefox/create-userjs", body)
		if err != nil {
			return err
		}
		var res prefs.UserJSResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("%s", res.Message)
		printStatus("Path", "%s", res.Path)
		if res.BackupPath != "" {
			printStatus("Backup", "%s", res.BackupPath)
		}
		return nil
	},
}

func init() {
	userJSCmd.Flags().StringArray("pref", nil, "extra preference as key=value (repeatable)")
}

// parsePrefs turns key=value pairs into prefs. true/false become booleans,
// integers become numbers, anything else stays a string.
func parsePrefs(raw []string) ([]prefs.Pref, error) {
	out := make([]prefs.Pref, 0, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --pref %q, want key=value", kv)
		}
		out = append(out, prefs.Pref{Key: key, Value: prefValue(strings.TrimSpace(value))})
	}
	return out, nil
}

func prefValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// --- templates ---

var templatesCmd = &cobra.Command{
	Use:   "templates [category]",
	Short: "List built-in CSS templates",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			resp, err := client.get(cmd.Context(), "/api/templates/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			var entries map[string]string
			if err := decodeJSON(resp, &entries); err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("No templates in category %q.\n", args[0])
				return nil
			}
			printTemplateNames(args[0], entries)
			return nil
		}

		resp, err := client.get(cmd.Context(), "/api/templates")
		if err != nil {
			return err
		}
		var all map[string]map[string]string
		if err := decodeJSON(resp, &all); err != nil {
			return err
		}
		categories := make([]string, 0, len(all))
		for c := range all {
			categories = append(categories, c)
		}
		slices.Sort(categories)
		for _, c := range categories {
			printTemplateNames(c, all[c])
		}
		return nil
	},
}

func printTemplateNames(category string, entries map[string]string) {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	slices.Sort(names)
	fmt.Println(colorize(colorBold, category))
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}

// --- handles ---

var handlesCmd = &cobra.Command{
	Use:   "handles",
	Short: "Manage editor file handles",
}

var handlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered file handles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/file/handles?limit="+strconv.Itoa(limit))
		if err != nil {
			return err
		}
		var handles []filestore.Handle
		if err := decodeJSON(resp, &handles); err != nil {
			return err
		}
		if len(handles) == 0 {
			fmt.Println("No file handles registered.")
			return nil
		}
		for _, h := range handles {
			fmt.Printf("%s  %-14s  %s\n", colorize(colorCyan, h.FileID), humanize.Time(h.LastUsed), h.FilePath)
		}
		return nil
	},
}

var handlesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget file handles not saved within a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/api/file/handles?older_than="+url.QueryEscape(olderThan.String()))
		if err != nil {
			return err
		}
		var res map[string]int64
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("Pruned %s handles", humanize.Comma(res["pruned"]))
		return nil
	},
}

func init() {
	handlesPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "prune handles last saved before this long ago")
	handlesListCmd.Flags().Int("limit", 50, "maximum number of handles to show")
	handlesCmd.AddCommand(handlesListCmd)
	handlesCmd.AddCommand(handlesPruneCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s (stored in %s)", args[0], config.Location())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
