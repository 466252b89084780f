package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joeycumines/bteng/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
	}
	cmd.PersistentFlags().String("section", "", "Section of the option (global when empty)")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the effective value of an option",
			Args:  cobra.ExactArgs(1),
			RunE:  configGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Write an option to the config file",
			Args:  cobra.ExactArgs(2),
			RunE:  configSet,
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective value of every option",
			Args:  cobra.NoArgs,
			RunE:  configShow,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the config file against the schema",
			Args:  cobra.NoArgs,
			RunE:  configValidate,
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Describe every option",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), config.DefaultSchema().FormatHelp())
			},
		},
	)
	return cmd
}

func configGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	section, _ := cmd.Flags().GetString("section")
	schema := config.DefaultSchema()
	key := args[0]
	if !schema.IsKnown(section, key) {
		if _, ok := cfg.GetSectionOption(section, key); !ok {
			return fmt.Errorf("configuration key %q not found", key)
		}
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, schema.Resolve(cfg, section, key))
	return nil
}

func configSet(cmd *cobra.Command, args []string) error {
	section, _ := cmd.Flags().GetString("section")
	key, value := args[0], args[1]
	schema := config.DefaultSchema()
	opt := schema.Lookup(section, key)
	if opt == nil {
		if section == "" {
			return fmt.Errorf("unknown global option %q", key)
		}
		return fmt.Errorf("unknown option in [%s]: %q", section, key)
	}

	// validate the value with the same rules applied on load
	probe := config.NewConfig()
	if section == "" {
		probe.SetGlobalOption(key, value)
	} else {
		probe.SetSectionOption(section, key, value)
	}
	if issues := config.ValidateConfig(probe, schema); len(issues) > 0 {
		return fmt.Errorf("invalid value: %s", issues[0])
	}

	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	if err := config.SetKeyInFile(path, section, key, value); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set configuration: %s = %s\n", qualified(section, key), value)
	return nil
}

func configShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	schema := config.DefaultSchema()
	out := cmd.OutOrStdout()
	for _, section := range append([]string{""}, schema.Sections()...) {
		values := schema.ResolveSection(cfg, section)
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, "%s: %s\n", qualified(section, k), values[k])
		}
	}
	return nil
}

func configValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	issues := config.ValidateConfig(cfg, config.DefaultSchema())
	if _, err := cfg.Settings(); err != nil {
		issues = append(issues, err.Error())
	}
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(out, "Configuration is valid.")
		return nil
	}
	for _, issue := range issues {
		_, _ = fmt.Fprintf(out, "  - %s\n", issue)
	}
	return fmt.Errorf("configuration has %d issue(s)", len(issues))
}

func qualified(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}
