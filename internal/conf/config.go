// config.go: settings struct and loading for the judolscan orchestration core.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aldirahman/judolscan/internal/errors"
)

// SQLiteSettings contains settings for the SQLite database backend.
type SQLiteSettings struct {
	Enabled bool   // true to use SQLite
	Path    string // path to the database file
}

// MySQLSettings contains settings for the MySQL database backend.
type MySQLSettings struct {
	Enabled  bool   // true to use MySQL
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL server host
	Port     string // MySQL server port
}

// OutputSettings selects the durable store backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// ScannerSettings controls the scan job worker pool and retry policy.
type ScannerSettings struct {
	Workers        int           // number of parallel scan workers
	QueueSize      int           // pending job queue capacity
	MaxAttempts    int           // attempts per job before permanent failure
	RetryBaseDelay time.Duration // base delay for exponential backoff
	RetryMaxDelay  time.Duration // cap for backoff delay
	BatchSize      int           // comments classified per prediction batch
	RetentionDays  int           // scans older than this are eligible for cleanup
}

// ValidationSettings controls the validation feedback service.
type ValidationSettings struct {
	UndoWindow time.Duration // period during which a validation can be undone
}

// RetrainingSettings controls threshold monitoring and the retraining pipeline.
type RetrainingSettings struct {
	Threshold      int           // unused validations required to trigger a run
	MinSamples     int           // minimum combined training set size
	ModelDir       string        // directory for trained model artifacts
	DatasetPath    string        // path to the original labeled dataset (CSV)
	LockStaleAfter time.Duration // persisted single-flight lock stale timeout
	Policy         string        // deployment policy: "always" or "min-accuracy"
	MinAccuracy    float64       // accuracy floor for the min-accuracy policy
}

// CommentsSettings controls upstream comment fetching.
type CommentsSettings struct {
	PageDelay time.Duration // minimum delay between sequential page fetches
}

// PredictorSettings controls inference-side behavior.
type PredictorSettings struct {
	CacheTTL time.Duration // how long predictions are cached per comment text
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug bool // true to enable debug logging

	Output     OutputSettings
	Scanner    ScannerSettings
	Validation ValidationSettings
	Retraining RetrainingSettings
	Comments   CommentsSettings
	Predictor  PredictorSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration from the given path (or the defaults when the
// path is empty) and returns the populated Settings.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_path", configPath).
				Build()
		}
	} else {
		v.SetConfigName("config")
		for _, p := range defaultConfigPaths() {
			v.AddConfigPath(p)
		}
		// A missing config file is fine, defaults apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.New(err).
					Component("conf").
					Category(errors.CategoryConfiguration).
					Build()
			}
		}
	}

	v.SetEnvPrefix("judolscan")
	v.AutomaticEnv()

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-settings").
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// Setting returns the last loaded Settings, or defaults when Load has not run.
func Setting() *Settings {
	settingsMutex.RLock()
	s := settingsInstance
	settingsMutex.RUnlock()
	if s != nil {
		return s
	}

	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	if settingsInstance == nil {
		settingsInstance = Default()
	}
	return settingsInstance
}

// Default returns Settings populated with the built-in defaults.
func Default() *Settings {
	v := viper.New()
	setDefaults(v)
	settings := &Settings{}
	// Unmarshalling pure defaults cannot fail.
	_ = v.Unmarshal(settings)
	return settings
}

// Validate checks the settings for internally inconsistent values.
func (s *Settings) Validate() error {
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return errors.Newf("only one database backend may be enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Scanner.Workers < 1 {
		return errors.Newf("scanner.workers must be at least 1, got %d", s.Scanner.Workers).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Scanner.MaxAttempts < 1 {
		return errors.Newf("scanner.maxattempts must be at least 1, got %d", s.Scanner.MaxAttempts).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Retraining.Threshold < 1 {
		return errors.Newf("retraining.threshold must be at least 1, got %d", s.Retraining.Threshold).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Validation.UndoWindow <= 0 {
		return errors.Newf("validation.undowindow must be positive, got %s", s.Validation.UndoWindow).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	switch s.Retraining.Policy {
	case "always", "min-accuracy":
	default:
		return errors.Newf("unknown retraining.policy %q", s.Retraining.Policy).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Save writes the settings to the given path as YAML.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal-settings").
			Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryFileIO).
				Context("config_path", path).
				Build()
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("config_path", path).
			Build()
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "judolscan.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")

	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.queuesize", 64)
	v.SetDefault("scanner.maxattempts", 3)
	v.SetDefault("scanner.retrybasedelay", 60*time.Second)
	v.SetDefault("scanner.retrymaxdelay", 5*time.Minute)
	v.SetDefault("scanner.batchsize", 100)
	v.SetDefault("scanner.retentiondays", 30)

	v.SetDefault("validation.undowindow", 5*time.Second)

	v.SetDefault("retraining.threshold", 100)
	v.SetDefault("retraining.minsamples", 100)
	v.SetDefault("retraining.modeldir", "models")
	v.SetDefault("retraining.datasetpath", "ml/df_all.csv")
	v.SetDefault("retraining.lockstaleafter", 30*time.Minute)
	v.SetDefault("retraining.policy", "always")
	v.SetDefault("retraining.minaccuracy", 0.0)

	v.SetDefault("comments.pagedelay", 100*time.Millisecond)

	v.SetDefault("predictor.cachettl", 10*time.Minute)
}

// defaultConfigPaths returns the search path for config.yaml.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "judolscan"))
	}
	if exePath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exePath))
	}
	return paths
}

// DataDSN returns the MySQL DSN assembled from the settings.
func (m *MySQLSettings) DataDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}
