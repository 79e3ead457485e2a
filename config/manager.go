package config

import (
	"os"
	"path/filepath"

	"go.uber.org/config"

	"github.com/hanchuanchuan/goinception-gateway/core"
	"github.com/hanchuanchuan/goinception-gateway/logging"
)

var logger = logging.GetLogger("config")

// fileConfig is the YAML shape loaded from disk; it is populated into a
// Config's Rules/Exec/Remote trees the way the teacher's Manager populates
// a single boot struct (config/manager.go's NewManager()).
type fileConfig struct {
	Rules  Rules  `yaml:"rules"`
	Exec   Exec   `yaml:"exec"`
	Remote Remote `yaml:"remote"`
	Log    struct {
		Path string `yaml:"path"`
	} `yaml:"log"`
}

// Manager owns the search path used to locate the gateway's rule-config
// file and the live Config it produced.
type Manager struct {
	ConfigPath string
	Config     *Config
}

// NewManager loads a Config from the first existing file among the default
// search locations (or from path, if non-empty), the way the teacher's
// NewManager() walks defaultFileLocations() and logs what it found.
func NewManager(path string) (*Manager, error) {
	cfg := New()

	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = defaultFileLocations()
	}

	sb := core.NewStringBuilder()
	sb.WriteLine()
	sb.WriteLine("Search configuration locations:")

	var sources []config.YAMLOption
	var found string
	for _, f := range candidates {
		if core.FileExists(f) {
			sources = append(sources, config.File(f))
			sb.WriteLine("[Found]:", f)
			found = f
			break
		}
		sb.WriteLine("[Not Found]:", f)
	}
	logger.Info(sb.String())

	if len(sources) > 0 {
		yaml, err := config.NewYAML(sources...)
		if err != nil {
			logger.Warn("load configuration file failed", core.LineSeparator, err)
			return &Manager{ConfigPath: found, Config: cfg}, nil
		}
		var fc fileConfig
		fc.Rules = cfg.Rules
		fc.Exec = cfg.Exec
		fc.Remote = cfg.Remote
		if err := yaml.Get(config.Root).Populate(&fc); err != nil {
			logger.Warn("populate configuration failed", core.LineSeparator, err)
		} else {
			cfg.Rules = fc.Rules
			cfg.Exec = fc.Exec
			cfg.Remote = fc.Remote
			if fc.Log.Path != "" {
				cfg.SetAuditLogPath(fc.Log.Path)
			}
		}
	}

	return &Manager{ConfigPath: found, Config: cfg}, nil
}

func defaultFileLocations() []string {
	var files []string
	if wd, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(wd, "etc", "gateway.yaml"))
	}
	files = append(files, "/etc/goinception-gateway/gateway.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".goinception-gateway.yaml"))
	}
	return files
}
