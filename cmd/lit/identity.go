package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imraghavojha/lit/pkg/object"
	"github.com/imraghavojha/lit/pkg/repo"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadIdentity resolves the commit author. Precedence, highest first:
// --author/--email flags, LIT_USER_NAME/LIT_USER_EMAIL, the repository's
// config.toml, ~/.lit/config.toml, then $USER.
func loadIdentity(cmd *cobra.Command, r *repo.Repo) (object.Signature, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigName("config")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".lit"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return object.Signature{}, fmt.Errorf("read global config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return object.Signature{}, err
	}
	user := map[string]any{}
	if cfg.User.Name != "" {
		user["name"] = cfg.User.Name
	}
	if cfg.User.Email != "" {
		user["email"] = cfg.User.Email
	}
	if err := v.MergeConfigMap(map[string]any{"user": user}); err != nil {
		return object.Signature{}, fmt.Errorf("merge repository config: %w", err)
	}

	v.SetEnvPrefix("lit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := cmd.Flags().Lookup("author"); f != nil {
		if err := v.BindPFlag("user.name", f); err != nil {
			return object.Signature{}, err
		}
	}
	if f := cmd.Flags().Lookup("email"); f != nil {
		if err := v.BindPFlag("user.email", f); err != nil {
			return object.Signature{}, err
		}
	}

	fallback := os.Getenv("USER")
	if fallback == "" {
		fallback = "unknown"
	}
	v.SetDefault("user.name", fallback)
	v.SetDefault("user.email", fallback+"@localhost")

	return repo.NewSignature(v.GetString("user.name"), v.GetString("user.email"), time.Now()), nil
}
