package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"playvars.dev/pkg/playvars/internal/adapter"
	"playvars.dev/pkg/playvars/internal/schema"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = ".playvars"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."
	homeFolderPath   = "$HOME"
	dotenvFileName   = ".env"

	outputFlagName     = "output"
	noCacheFlagName    = "no-cache"
	verboseFlagName    = "verbose"
	parallelFlagName   = "parallel"
	formatFlagName     = "format"
	jsonSchemaFlagName = "json-schema"

	parallelConfigKey       = "parallel"
	conditionsAsBooleanKey  = "infer.conditions_as_boolean"
	indexContainerKey       = "infer.index_container"
	discoverExtensionsKey   = "discover.extensions"
	discoverSkipDirsKey     = "discover.skip_dirs"
	discoverSkipSuffixesKey = "discover.skip_suffixes"

	defaultReportsDir          = ".playvars"
	defaultNoCache             = false
	defaultConditionsAsBoolean = false
	defaultIndexContainer      = string(schema.ContainerList)

	envPrefix = "PLAYVARS"

	logFileKey       = "log.file"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFile       = ".playvars.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var (
	defaultExtensions   = []string{".yml", ".yaml", ".j2"}
	defaultSkipDirs     = []string{"group_vars"}
	defaultSkipSuffixes = []string{"handlers", "vars"}
)

var globalLogger *slog.Logger

// configErr keeps a config or .env read failure until the logger exists.
var configErr error

func init() {
	if err := godotenv.Load(dotenvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		configErr = fmt.Errorf("load %s: %w", dotenvFileName, err)
	}

	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.AddConfigPath(homeFolderPath)
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(noCacheFlagName, defaultNoCache)
	viper.SetDefault(parallelConfigKey, runtime.NumCPU())
	viper.SetDefault(conditionsAsBooleanKey, defaultConditionsAsBoolean)
	viper.SetDefault(indexContainerKey, defaultIndexContainer)
	viper.SetDefault(discoverExtensionsKey, defaultExtensions)
	viper.SetDefault(discoverSkipDirsKey, defaultSkipDirs)
	viper.SetDefault(discoverSkipSuffixesKey, defaultSkipSuffixes)

	viper.SetDefault(logFileKey, defaultLogFile)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		configErr = errors.Join(configErr, fmt.Errorf("read config: %w", err))
	}
}

// inferConfig builds the inference switches from the current configuration.
func inferConfig() (schema.Config, error) {
	container, err := schema.ParseContainerKind(viper.GetString(indexContainerKey))
	if err != nil {
		return schema.Config{}, fmt.Errorf("%s: %w", indexContainerKey, err)
	}

	return schema.Config{
		ConditionsAsBoolean: viper.GetBool(conditionsAsBooleanKey),
		IndexContainer:      container,
	}, nil
}

func discoverOptions() adapter.DiscoverOptions {
	return adapter.DiscoverOptions{
		Extensions:   viper.GetStringSlice(discoverExtensionsKey),
		SkipDirs:     viper.GetStringSlice(discoverSkipDirsKey),
		SkipSuffixes: viper.GetStringSlice(discoverSkipSuffixesKey),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels (-4 for debug) are accepted too.
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the global slog logger at a rotating log file.
//
// It logs at the configured level, or at Debug when verbose is set.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFile
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	if configErr != nil {
		slog.Warn("Ignoring configuration", "error", configErr)
	}
}
