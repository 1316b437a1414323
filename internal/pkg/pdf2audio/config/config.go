// Package config merges command line flags, an optional TOML config file and
// PDF2AUDIO_* environment variables into one validated Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
	"pdf2audio/internal/pkg/pdf2audio/preprocess"
)

const (
	EnvPrefix      = "PDF2AUDIO"
	configName     = "pdf2audio.cfg"
	defaultUnitLen = 300
	koreanUnitLen  = 120
)

// ErrHelp is returned by Load when --help was requested. Usage has already
// been written.
var ErrHelp = pflag.ErrHelp

type Config struct {
	PDF             string  `mapstructure:"pdf"`
	Output          string  `mapstructure:"output"`
	FirstPage       int     `mapstructure:"first_page"`
	LastPage        int     `mapstructure:"last_page"`
	VoiceStyle      string  `mapstructure:"voice_style"`
	OnnxDir         string  `mapstructure:"onnx_dir"`
	Backend         string  `mapstructure:"backend"`
	TotalStep       int     `mapstructure:"total_step"`
	Speed           float32 `mapstructure:"speed"`
	PdftotextPath   string  `mapstructure:"pdftotext_path"`
	PdftotextArgs   string  `mapstructure:"pdftotext_args"`
	RemoveFootnotes bool    `mapstructure:"remove_footnotes"`
	Debug           bool    `mapstructure:"debug"`
	Quiet           bool    `mapstructure:"quiet"`
	LogLevel        string  `mapstructure:"log_level"`
	LogFile         string  `mapstructure:"log_file"`
	MaxUnitLength   int     `mapstructure:"max_unit_length"`
	Silence         float64 `mapstructure:"silence"`
	Workers         int     `mapstructure:"workers"`
	SampleRate      int     `mapstructure:"sample_rate"`
	BitDepth        int     `mapstructure:"bit_depth"`
	Lang            string  `mapstructure:"lang"`
	Seed            uint64  `mapstructure:"seed"`
	TraceFile       string  `mapstructure:"trace_file"`
}

// flag name -> config key
var bindings = map[string]string{
	"pdf":              "pdf",
	"output":           "output",
	"first-page":       "first_page",
	"last-page":        "last_page",
	"voice-style":      "voice_style",
	"onnx-dir":         "onnx_dir",
	"backend":          "backend",
	"total-step":       "total_step",
	"speed":            "speed",
	"pdftotext-path":   "pdftotext_path",
	"pdftotext-args":   "pdftotext_args",
	"remove-footnotes": "remove_footnotes",
	"debug":            "debug",
	"quiet":            "quiet",
	"log-level":        "log_level",
	"log-file":         "log_file",
	"max-unit-length":  "max_unit_length",
	"silence":          "silence",
	"workers":          "workers",
	"sample-rate":      "sample_rate",
	"bit-depth":        "bit_depth",
	"lang":             "lang",
	"seed":             "seed",
	"trace-file":       "trace_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "")
	v.SetDefault("first_page", 0)
	v.SetDefault("last_page", 0)
	v.SetDefault("voice_style", "assets/voice_styles/M1.json")
	v.SetDefault("onnx_dir", "assets/onnx")
	v.SetDefault("backend", "supertonic")
	v.SetDefault("total_step", 5)
	v.SetDefault("speed", 1.05)
	v.SetDefault("pdftotext_path", "")
	v.SetDefault("pdftotext_args", "")
	v.SetDefault("remove_footnotes", false)
	v.SetDefault("debug", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("max_unit_length", 0)
	v.SetDefault("silence", 0.3)
	v.SetDefault("workers", 1)
	v.SetDefault("sample_rate", 0)
	v.SetDefault("bit_depth", 16)
	v.SetDefault("lang", "")
	v.SetDefault("seed", 0)
	v.SetDefault("trace_file", "")
}

func newFlagSet(usage io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pdf2audio", pflag.ContinueOnError)
	fs.SetOutput(usage)

	fs.StringP("config", "c", "", "Path to config file")
	fs.StringP("pdf", "p", "", "Input PDF file (required)")
	fs.StringP("output", "o", "", "Output WAV file (default: <pdf name>.wav)")
	fs.Int("first-page", 0, "First page to convert (default: 1)")
	fs.Int("last-page", 0, "Last page to convert (default: last page)")
	fs.String("voice-style", "assets/voice_styles/M1.json", "Voice style file (.json, .yaml or .npz)")
	fs.String("onnx-dir", "assets/onnx", "Directory with the ONNX models, tts.json and unicode_indexer.json")
	fs.String("backend", "supertonic", "Inference backend")
	fs.Int("total-step", 5, "Number of denoising steps (quality)")
	fs.Float32("speed", 1.05, "Speech speed factor")
	fs.String("pdftotext-path", "", "Path to pdftotext executable (default: $XPDF_HOME/bin64/pdftotext, then PATH)")
	fs.String("pdftotext-args", "", "Extra arguments passed to pdftotext, shell quoted")
	fs.Bool("remove-footnotes", false, "Remove footnotes, references and citations from the text")
	fs.Bool("debug", false, "Save raw and cleaned extracted text as <pdf name>_extracted_*.txt in the working directory")
	fs.BoolP("quiet", "q", false, "Only log warnings and errors")
	fs.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Write JSON logs to this file")
	fs.Int("max-unit-length", 0, "Maximum characters per synthesis unit (default 300, 120 for ko)")
	fs.Float64("silence", 0.3, "Silence between units in seconds")
	fs.Int("workers", 1, "Units synthesized in parallel")
	fs.Int("sample-rate", 0, "Output sample rate in Hz (default: model rate)")
	fs.Int("bit-depth", 16, "Output bit depth (16 or 32)")
	fs.String("lang", "", fmt.Sprintf("Language tag for multilingual models %v", preprocess.Languages))
	fs.Uint64("seed", 0, "Noise seed (0: time based)")
	fs.String("trace-file", "", "Write OpenTelemetry spans to this file")
	fs.BoolP("help", "h", false, "Show help message")

	fs.Usage = func() {
		fmt.Fprintf(usage, "Usage: pdf2audio --pdf <file> [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(usage, "\nEnvironment:\n")
		fmt.Fprintf(usage, "  XPDF_HOME             Base directory of an xpdf-tools installation\n")
		fmt.Fprintf(usage, "  ONNXRUNTIME_LIB_PATH  ONNX Runtime shared library\n")
		fmt.Fprintf(usage, "  %s_<KEY>        Override any config key, e.g. %s_TOTAL_STEP\n", EnvPrefix, EnvPrefix)
	}
	return fs
}

// Load parses args (without the program name). Usage and flag errors are
// written to usage. All failures are KindConfig errors except ErrHelp.
func Load(args []string, usage io.Writer) (*Config, error) {
	const op = "load-config"

	fs := newFlagSet(usage)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, pdferrors.Wrap(pdferrors.KindConfig, op, "failed to parse flags", err)
	}
	if help, _ := fs.GetBool("help"); help {
		fs.Usage()
		return nil, ErrHelp
	}
	if fs.NArg() > 0 {
		return nil, pdferrors.Newf(pdferrors.KindConfig, op, "unexpected argument %q", fs.Arg(0))
	}

	v := viper.New()
	setDefaults(v)
	for flagName, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, pdferrors.Wrap(pdferrors.KindConfig, op, "failed to bind flag "+flagName, err)
		}
	}

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pdf2audio"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, pdferrors.Wrap(pdferrors.KindConfig, op, "failed to read config", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindConfig, op, "failed to unmarshal config", err)
	}

	cfg.applyDerivedDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindConfig, op, "invalid configuration", err)
	}
	return &cfg, nil
}

func (c *Config) applyDerivedDefaults() {
	if c.Output == "" && c.PDF != "" {
		c.Output = Stem(c.PDF) + ".wav"
	}
	if c.MaxUnitLength == 0 {
		c.MaxUnitLength = defaultUnitLen
		if c.Lang == "ko" {
			c.MaxUnitLength = koreanUnitLen
		}
	}
	if c.Quiet {
		c.LogLevel = "warn"
	}
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *Config) Validate() error {
	if c.PDF == "" {
		return errors.New("--pdf is required")
	}
	info, err := os.Stat(c.PDF)
	if err != nil {
		return fmt.Errorf("PDF file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("PDF path %s is a directory", c.PDF)
	}

	switch {
	case c.FirstPage < 0 || c.LastPage < 0:
		return fmt.Errorf("page numbers must not be negative")
	case c.LastPage > 0 && c.FirstPage > c.LastPage:
		return fmt.Errorf("first page %d is after last page %d", c.FirstPage, c.LastPage)
	case c.TotalStep < 1:
		return fmt.Errorf("total step must be at least 1, got %d", c.TotalStep)
	case !(c.Speed > 0) || math.IsInf(float64(c.Speed), 0):
		return fmt.Errorf("speed must be a positive number, got %v", c.Speed)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.Silence < 0 || math.IsNaN(c.Silence):
		return fmt.Errorf("silence must not be negative, got %v", c.Silence)
	case c.SampleRate < 0:
		return fmt.Errorf("sample rate must not be negative, got %d", c.SampleRate)
	case c.BitDepth != 16 && c.BitDepth != 32:
		return fmt.Errorf("bit depth must be 16 or 32, got %d", c.BitDepth)
	case c.MaxUnitLength < 1:
		return fmt.Errorf("max unit length must be positive, got %d", c.MaxUnitLength)
	case c.Lang != "" && !preprocess.IsSupported(c.Lang):
		return fmt.Errorf("unsupported language %q, available: %v", c.Lang, preprocess.Languages)
	case c.Output == "":
		return errors.New("output path is empty")
	}
	return nil
}
