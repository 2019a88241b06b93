package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"autocut/internal/appdirs"
	"autocut/log"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

type App struct {
	Proxy       string   `toml:"proxy"`
	ParsedProxy *url.URL `toml:"-"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type Pipeline struct {
	// OutputDir is the base directory holding one subdirectory per job.
	// Empty means the jobs directory resolved by appdirs.
	OutputDir          string   `toml:"output_dir"`
	ForceReprocess     bool     `toml:"force_reprocess"`
	TargetLanguage     string   `toml:"target_language"`
	CaptionLanguages   []string `toml:"caption_languages"`
	StrictRanges       bool     `toml:"strict_ranges"`
	CutWorkers         int      `toml:"cut_workers"`
	ClipExt            string   `toml:"clip_ext"`
	TranslateBatchSize int      `toml:"translate_batch_size"`
	SubtitleStyle      string   `toml:"subtitle_style"`
}

type Highlight struct {
	Mode             string  `toml:"mode"`
	Prompt           string  `toml:"prompt"`
	MinClipDuration  int     `toml:"min_clip_duration"`
	MaxClipDuration  int     `toml:"max_clip_duration"`
	SceneThreshold   float64 `toml:"scene_threshold"`
	MinSceneDuration float64 `toml:"min_scene_duration"`
}

type Llm struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// Translate overrides the Llm section for caption translation. Empty fields
// fall back to Llm.
type Translate struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Prompt  string `toml:"prompt"`
}

type Download struct {
	Provider    string `toml:"provider"`
	Endpoint    string `toml:"endpoint"`
	CookiesPath string `toml:"cookies_path"`
	VideoFormat string `toml:"video_format"`
}

type Bin struct {
	Ffmpeg  string `toml:"ffmpeg"`
	Ffprobe string `toml:"ffprobe"`
	Ytdlp   string `toml:"ytdlp"`
}

type Queue struct {
	// RedisAddr enables the asynq queue. Empty keeps jobs in process.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
	QueueSize     int    `toml:"queue_size"`
}

type Oss struct {
	Enabled         bool   `toml:"enabled"`
	AccessKeyId     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Prefix          string `toml:"prefix"`
}

type Config struct {
	App       App       `toml:"app"`
	Server    Server    `toml:"server"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Highlight Highlight `toml:"highlight"`
	Llm       Llm       `toml:"llm"`
	Translate Translate `toml:"translate"`
	Download  Download  `toml:"download"`
	Bin       Bin       `toml:"bin"`
	Queue     Queue     `toml:"queue"`
	Oss       Oss       `toml:"oss"`
}

var Conf = defaultConfig()

var resolveConfigPath = func() (string, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

func defaultConfig() Config {
	return Config{
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Pipeline: Pipeline{
			TargetLanguage:     "zh",
			CaptionLanguages:   []string{"en", "zh-Hans", "zh-Hant", "ja"},
			CutWorkers:         1,
			ClipExt:            "mp4",
			TranslateBatchSize: 10,
		},
		Highlight: Highlight{
			Mode:             "llm",
			MinClipDuration:  45,
			MaxClipDuration:  90,
			SceneThreshold:   0.3,
			MinSceneDuration: 10,
		},
		Llm: Llm{
			BaseUrl: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Download: Download{
			Provider: "ytdlp",
		},
		Queue: Queue{
			Concurrency: 2,
			QueueSize:   128,
		},
	}
}

// LoadOrCreateConfig reads the config file, writing the defaults first when
// it does not exist yet. created reports whether that happened.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	created := false
	if _, err = os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, err
		}
		created = true
		log.GetLogger().Info("已生成默认配置文件", zap.String("path", configPath))
	} else if err != nil {
		return false, err
	}

	conf := defaultConfig()
	if _, err = toml.DecodeFile(configPath, &conf); err != nil {
		return created, fmt.Errorf("解析配置文件失败 %s: %w", configPath, err)
	}
	Conf = conf
	applyEnv(&Conf)
	return created, nil
}

// SaveConfig writes Conf to the resolved config path.
func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(Conf)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

// applyEnv lets secrets come from the environment (or .env) instead of the
// config file.
func applyEnv(c *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Llm.ApiKey, "LLM_API_KEY")
	set(&c.Llm.BaseUrl, "LLM_BASE_URL")
	set(&c.Llm.Model, "LLM_MODEL")
	set(&c.App.Proxy, "AUTOCUT_PROXY")
	set(&c.Oss.AccessKeyId, "OSS_ACCESS_KEY_ID")
	set(&c.Oss.AccessKeySecret, "OSS_ACCESS_KEY_SECRET")
	set(&c.Oss.Bucket, "OSS_BUCKET")
	set(&c.Oss.Region, "OSS_REGION")
	set(&c.Oss.Endpoint, "OSS_ENDPOINT")
	set(&c.Queue.RedisAddr, "REDIS_ADDR")
}

// CheckConfig validates Conf and fills derived fields.
func CheckConfig() error {
	if Conf.App.Proxy != "" {
		parsed, err := url.Parse(Conf.App.Proxy)
		if err != nil {
			return fmt.Errorf("代理地址格式错误 invalid proxy %q: %w", Conf.App.Proxy, err)
		}
		Conf.App.ParsedProxy = parsed
	} else {
		Conf.App.ParsedProxy = nil
	}

	if strings.TrimSpace(Conf.Pipeline.TargetLanguage) == "" {
		return errors.New("pipeline.target_language is required")
	}
	switch Conf.Highlight.Mode {
	case "llm":
		if Conf.Llm.ApiKey == "" {
			return errors.New("highlight mode llm requires llm.api_key (or LLM_API_KEY)")
		}
	case "scene":
	default:
		return fmt.Errorf("unknown highlight.mode %q (want llm or scene)", Conf.Highlight.Mode)
	}
	if Conf.Highlight.SceneThreshold <= 0 || Conf.Highlight.SceneThreshold >= 1 {
		return fmt.Errorf("highlight.scene_threshold must be in (0, 1), got %v", Conf.Highlight.SceneThreshold)
	}
	if Conf.Highlight.MinSceneDuration < 0 {
		return errors.New("highlight.min_scene_duration must not be negative")
	}

	switch Conf.Download.Provider {
	case "", "ytdlp", "tubedown":
	default:
		return fmt.Errorf("unknown download.provider %q (want ytdlp or tubedown)", Conf.Download.Provider)
	}

	if Conf.Oss.Enabled {
		if Conf.Oss.AccessKeyId == "" || Conf.Oss.AccessKeySecret == "" || Conf.Oss.Bucket == "" || Conf.Oss.Region == "" {
			return errors.New("oss.enabled requires access_key_id, access_key_secret, bucket and region")
		}
	}
	return nil
}

// OutputDir is the pipeline base directory after defaults.
func OutputDir() (string, error) {
	if dir := strings.TrimSpace(Conf.Pipeline.OutputDir); dir != "" {
		return dir, nil
	}
	return appdirs.ResolveJobRoot()
}

// TranslateLlm merges the translate override with the shared Llm section.
func TranslateLlm() Llm {
	l := Conf.Llm
	if Conf.Translate.BaseUrl != "" {
		l.BaseUrl = Conf.Translate.BaseUrl
	}
	if Conf.Translate.ApiKey != "" {
		l.ApiKey = Conf.Translate.ApiKey
	}
	if Conf.Translate.Model != "" {
		l.Model = Conf.Translate.Model
	}
	return l
}
