package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/repopulse/core/classify"
	"github.com/huangsam/repopulse/core/identity"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/outwriter"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rulesOutput is the output mode of the rules subcommands.
var rulesOutput = schema.TextOut

// rulesSetup loads the rules file without touching repositories or stores.
func rulesSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	mode := schema.OutputMode(strings.ToLower(viper.GetString("output")))
	if _, ok := schema.ValidOutputModes[mode]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", mode)
	}
	rulesOutput = mode
	return loadRules(viper.GetString("rules"))
}

// rulesCmd groups the ruleset tooling.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and test the attribution rules",
	Long: `Work with the rules file that drives identity normalization and AI detection.

The rules file is YAML with these keys, all optional:
  name_mappings        identity -> canonical name
  normalization_rules  regex -> canonical name
  ai_keywords          pattern, weight and regex flag
  ai_threshold         minimum score for a commit to count as AI-assisted
  file_types           extensions that count towards line totals
  exclude_patterns     path fragments that never count

Keys the file leaves out keep their built-in defaults.

Subcommands:
  show      - Print the active ruleset and its fingerprint
  init      - Write the default ruleset to a file
  check     - Score a commit message against the ruleset
  normalize - Resolve an author name to its canonical identity`,
}

// rulesShowCmd prints the active ruleset.
var rulesShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Print the active ruleset",
	PreRunE: rulesSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := outwriter.WriteRuleset(os.Stdout, rulesStore.Current(), rulesOutput); err != nil {
			contract.LogFatal("Failed to print ruleset", err)
		}
	},
}

// rulesInitCmd writes the defaults so they can be edited.
var rulesInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default ruleset to a file",
	Long: `Write the built-in ruleset as YAML so it can be edited.

Examples:
  # Create .repopulse-rules.yaml in the working directory
  repopulse rules init

  # Replace an existing file
  repopulse rules init team-rules.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := defaultRulesFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := ruleset.WriteDefault(path, viper.GetBool("force")); err != nil {
			contract.LogFatal("Failed to write rules file", err)
		}
		fmt.Printf("Default rules written to %s\n", path)
	},
}

// rulesCheckCmd classifies a single message.
var rulesCheckCmd = &cobra.Command{
	Use:   "check <message>",
	Short: "Score a commit message against the ruleset",
	Long: `Score a commit message, and optionally the added lines of a diff, the same way
an analysis would, and print which keywords matched.

Examples:
  repopulse rules check "Refactor parser with Copilot"
  repopulse rules check "Add retries" --diff-file added.txt --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: rulesSetup,
	Run: func(_ *cobra.Command, args []string) {
		var diff string
		if path := viper.GetString("diff-file"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				contract.LogFatal("Failed to read diff file", err)
			}
			diff = string(data)
		}
		snap := rulesStore.Current()
		verdict := classify.Classify(args[0], diff, snap)
		if err := outwriter.WriteVerdict(os.Stdout, verdict, snap.Threshold(), rulesOutput); err != nil {
			contract.LogFatal("Failed to print verdict", err)
		}
	},
}

// rulesNormalizeCmd resolves author names.
var rulesNormalizeCmd = &cobra.Command{
	Use:     "normalize <name>...",
	Short:   "Resolve author names to canonical identities",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: rulesSetup,
	Run: func(_ *cobra.Command, args []string) {
		snap := rulesStore.Current()
		for _, name := range args {
			fmt.Printf("%s -> %s\n", name, identity.Normalize(name, snap))
		}
	},
}
