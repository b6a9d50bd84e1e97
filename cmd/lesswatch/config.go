package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yacobolo/lesswatch"
)

var k = koanf.New(".")

// flagKeys maps flag names to config keys where they differ. An empty key
// means the flag is not configuration.
var flagKeys = map[string]string{
	"ext":      "output.ext",
	"log-file": "log.file",
	"config":   "",
	"help":     "",
}

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	// Resolve config file path from flag
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".lesswatch.yaml"
	}

	// Load config file and env vars
	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// 3. CLI flags (highest precedence; defaults only fill keys nothing else set)
	flags := cmd.Flags()
	provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key := configKey(f.Name)
		if key == "" {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

func configKey(flag string) string {
	if key, ok := flagKeys[flag]; ok {
		return key
	}
	return flag
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	// 1. Config file (lowest precedence among providers)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// 2. Environment variables (LESSWATCH_* prefix)
	if err := k.Load(env.Provider("LESSWATCH_", ".", func(s string) string {
		// LESSWATCH_OUTPUT_EXT -> output.ext
		// LESSWATCH_DIR -> dir
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "LESSWATCH_")),
			"_", ".",
		)
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// buildConfig constructs the library's Config struct from koanf state.
func buildConfig() lesswatch.Config {
	defaults := lesswatch.DefaultConfig()

	config := lesswatch.Config{
		Dir:         getString("dir", ""),
		Watch:       getBool("watch", defaults.Watch),
		InitCompile: getBool("init", defaults.InitCompile),
		OutputExt:   getString("output.ext", defaults.OutputExt),
		Include:     getString("include", defaults.Include),
		Ignore:      defaults.Ignore,
		Gitignore:   getBool("gitignore", defaults.Gitignore),
		Quiet:       getBool("quiet", false),
		Color:       getBool("color", false),
	}

	if k.Exists("ignore") {
		config.Ignore = getList("ignore")
	}

	return config
}

// getList reads a list that may also be given as one comma-separated
// string, which is how it arrives from an environment variable.
func getList(key string) []string {
	if v, ok := k.Get(key).(string); ok {
		return splitList([]string{v})
	}
	return splitList(k.Strings(key))
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getString returns the value at key, or defaultVal when it is unset or empty.
func getString(key, defaultVal string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return defaultVal
}

// getBool returns the value at key, or defaultVal when it is unset.
func getBool(key string, defaultVal bool) bool {
	if k.Exists(key) {
		return k.Bool(key)
	}
	return defaultVal
}
