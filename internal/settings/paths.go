package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// AppName scopes every directory the application uses.
const AppName = "readaloud"

// Dirs are the per-user directories of the application.
type Dirs struct {
	// Config lists config directories, most specific first.
	Config []string
	Data   string
	Cache  string
}

// ResolveDirs finds the user directories. READALOUD_CONFIG_HOME and
// XDG_CONFIG_HOME take precedence over the platform config dirs.
func ResolveDirs() (Dirs, error) {
	scope := gap.NewScope(gap.User, AppName)

	config, err := scope.ConfigDirs()
	if err != nil {
		return Dirs{}, fmt.Errorf("unable to find config directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		config = append([]string{filepath.Join(c, AppName)}, config...)
	}
	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		config = append([]string{ExpandPath(c)}, config...)
	}

	data, err := scope.DataDirs()
	if err != nil || len(data) == 0 {
		return Dirs{}, fmt.Errorf("unable to find data directory: %w", err)
	}
	cache, err := scope.CacheDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("unable to find cache directory: %w", err)
	}

	return Dirs{Config: config, Data: data[0], Cache: cache}, nil
}

// ExpandPath expands ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return path
	}
	return expanded
}
