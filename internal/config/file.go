package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Name is used for the config file and directories.
const Name = "readalong"

const header = `# readalong configuration
# Every key can be overridden with READALONG_<SECTION>_<KEY>, for example
# READALONG_SERVER_URL or READALONG_PLAYBACK_SPEED.
`

// Dirs returns the directories searched for the config file, most specific
// first.
func Dirs() ([]string, error) {
	scope := gap.NewScope(gap.User, Name)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, Name)}, dirs...)
	}
	if c := os.Getenv("READALONG_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// ReadInConfig points v at file, or searches the default places when file is
// empty. It returns the path of the file in use, or the path where a default
// file should be written when none exists. A file that fails to parse is
// still returned alongside the error.
func ReadInConfig(v *viper.Viper, file string) (string, error) {
	v.SetConfigType("yaml")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dirs, err := Dirs()
		if err != nil {
			return "", err
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName(Name)
		file = filepath.Join(dirs[0], Name+".yml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return file, nil
		}
		return v.ConfigFileUsed(), fmt.Errorf("could not parse configuration file: %w", err)
	}

	used := v.ConfigFileUsed()
	log.Debug("Using configuration file", "path", used)
	return used, nil
}

// DefaultYAML renders the built-in configuration as a commented YAML file.
func DefaultYAML() ([]byte, error) {
	body, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("unable to encode default configuration: %w", err)
	}
	return append([]byte(header), body...), nil
}

// EnsureFile writes the default configuration to file unless it exists.
func EnsureFile(file string) error {
	if ext := path.Ext(file); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(file); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("unable create directory: %w", err)
	}

	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}
