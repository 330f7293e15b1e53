package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`

	WorkDrive struct {
		BaseURL         string `yaml:"baseURL"`
		AccessToken     string `yaml:"accessToken"`
		ReportsFolderID string `yaml:"reportsFolderID"`
	} `yaml:"workdrive"`

	CRM struct {
		BaseURL     string `yaml:"baseURL"`
		AccessToken string `yaml:"accessToken"`
		Module      string `yaml:"module"`
	} `yaml:"crm"`

	Mail struct {
		BaseURL     string `yaml:"baseURL"`
		AccessToken string `yaml:"accessToken"`
		AccountID   string `yaml:"accountId"`
		From        string `yaml:"from"`
	} `yaml:"mail"`

	Pipeline struct {
		MaxAttempts     int `yaml:"maxAttempts"`
		RetryBackoffMs  int `yaml:"retryBackoffMs"`
		StageTimeoutSec int `yaml:"stageTimeoutSec"`
	} `yaml:"pipeline"`

	Auth struct {
		WebhookToken string `yaml:"webhookToken"`
	} `yaml:"auth"`
}

// Load baca file config.yaml, lalu apply env overrides untuk secrets
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv lets deployments keep secrets out of the yaml file.
func (c *Config) applyEnv() {
	overrideString(&c.Database.Password, "DB_PASSWORD")
	overrideString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	overrideString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	overrideString(&c.AI.APIKey, "AI_API_KEY")
	overrideString(&c.WorkDrive.AccessToken, "WORKDRIVE_ACCESS_TOKEN")
	overrideString(&c.CRM.AccessToken, "CRM_ACCESS_TOKEN")
	overrideString(&c.Mail.AccessToken, "MAIL_ACCESS_TOKEN")
	overrideString(&c.Auth.WebhookToken, "WEBHOOK_TOKEN")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
