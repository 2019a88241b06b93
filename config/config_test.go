package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestLoadOrCreateConfigMissingCreatesDefault(t *testing.T) {
	tmp := t.TempDir()

	configPath := filepath.Join(tmp, "config", "config.toml")
	old := resolveConfigPath
	resolveConfigPath = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { resolveConfigPath = old })

	// Ensure missing
	if _, err := os.Stat(configPath); err == nil {
		t.Fatalf("expected config file to be missing")
	}

	created, err := LoadOrCreateConfig()
	if err != nil {
		t.Fatalf("LoadOrCreateConfig() error: %v", err)
	}
	if !created {
		t.Fatalf("LoadOrCreateConfig() created=false, want true")
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	var got Config
	if _, err := toml.DecodeFile(configPath, &got); err != nil {
		t.Fatalf("decode created config: %v", err)
	}
	if got.Server.Host != "127.0.0.1" {
		t.Fatalf("default server host = %q, want %q", got.Server.Host, "127.0.0.1")
	}
	if got.Server.Port != 8888 {
		t.Fatalf("default server port = %d, want %d", got.Server.Port, 8888)
	}
}

func TestSaveConfigCreatesParentDirs(t *testing.T) {
	tmp := t.TempDir()

	configPath := filepath.Join(tmp, "deep", "nest", "config.toml")
	old := resolveConfigPath
	resolveConfigPath = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { resolveConfigPath = old })

	Conf = defaultConfig()
	Conf.Server.Port = 9999

	if err := SaveConfig(); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	if _, err := os.Stat(filepath.Dir(configPath)); err != nil {
		t.Fatalf("expected parent directories to exist: %v", err)
	}

	var got Config
	if _, err := toml.DecodeFile(configPath, &got); err != nil {
		t.Fatalf("decode saved config: %v", err)
	}
	if got.Server.Port != 9999 {
		t.Fatalf("saved server port = %d, want %d", got.Server.Port, 9999)
	}
}

func TestCheckConfig(t *testing.T) {
	old := Conf
	t.Cleanup(func() { Conf = old })

	Conf = defaultConfig()
	Conf.Highlight.Mode = "scene"
	Conf.App.Proxy = "http://127.0.0.1:7890"
	if err := CheckConfig(); err != nil {
		t.Fatalf("CheckConfig() error: %v", err)
	}
	if Conf.App.ParsedProxy == nil || Conf.App.ParsedProxy.Host != "127.0.0.1:7890" {
		t.Fatalf("ParsedProxy = %v, want host 127.0.0.1:7890", Conf.App.ParsedProxy)
	}

	Conf = defaultConfig()
	Conf.Llm.ApiKey = ""
	if err := CheckConfig(); err == nil {
		t.Fatal("CheckConfig() accepted llm mode without api key")
	}

	Conf = defaultConfig()
	Conf.Highlight.Mode = "random"
	if err := CheckConfig(); err == nil {
		t.Fatal("CheckConfig() accepted unknown highlight mode")
	}

	Conf = defaultConfig()
	Conf.Highlight.Mode = "scene"
	Conf.Download.Provider = "ftp"
	if err := CheckConfig(); err == nil {
		t.Fatal("CheckConfig() accepted unknown download provider")
	}

	Conf = defaultConfig()
	Conf.Highlight.Mode = "scene"
	Conf.Oss.Enabled = true
	if err := CheckConfig(); err == nil {
		t.Fatal("CheckConfig() accepted oss without credentials")
	}
}

func TestTranslateLlmFallsBackToLlm(t *testing.T) {
	old := Conf
	t.Cleanup(func() { Conf = old })

	Conf = defaultConfig()
	Conf.Llm.ApiKey = "shared"
	Conf.Translate.Model = "gpt-4o"

	got := TranslateLlm()
	if got.ApiKey != "shared" || got.Model != "gpt-4o" || got.BaseUrl != Conf.Llm.BaseUrl {
		t.Fatalf("TranslateLlm() = %+v", got)
	}
}
