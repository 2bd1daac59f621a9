package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var config = viper.New()

// SupportedLangs lists the language tags a recipient may select,
// in the order they are rendered on the language keyboard.
var SupportedLangs = []string{"ru", "en", "hi", "pt", "es", "ui", "tr", "in", "fr", "ozbek", "de"}

const DefaultLang = "ru"

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		Path           string `mapstructure:"PATH"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Telegram struct {
		Token       string        `mapstructure:"TOKEN"`
		AdminID     int64         `mapstructure:"ADMIN_ID"`
		ChannelID   int64         `mapstructure:"CHANNEL_ID"`
		SendTimeout time.Duration `mapstructure:"SEND_TIMEOUT"`
	} `mapstructure:"TELEGRAM"`
	Postback struct {
		Secret string `mapstructure:"SECRET"`
	} `mapstructure:"POSTBACK"`
	Links struct {
		SupportURL string `mapstructure:"SUPPORT_URL"`
		RefURL     string `mapstructure:"REF_URL"`
		TokenURL   string `mapstructure:"TOKEN_URL"`
	} `mapstructure:"LINKS"`
	Broadcast struct {
		// Rate is the steady-state send rate in messages per second.
		// 33/s keeps parity with the previous 30ms inter-message delay.
		Rate       float64 `mapstructure:"RATE"`
		Burst      int     `mapstructure:"BURST"`
		FlushEvery int     `mapstructure:"FLUSH_EVERY"`
	} `mapstructure:"BROADCAST"`
	WebApp struct {
		Domain string `mapstructure:"DOMAIN"`
		Dir    string `mapstructure:"DIR"`
	} `mapstructure:"WEBAPP"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		os.Exit(1)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "partnerbot")
	v.SetDefault("HTTP_SERVER.ADDR", ":8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "sqlite")
	v.SetDefault("DATABASE.PATH", "./data/bot.db")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("TELEGRAM.SEND_TIMEOUT", 5*time.Second)
	v.SetDefault("BROADCAST.RATE", 33.0)
	v.SetDefault("BROADCAST.BURST", 1)
	v.SetDefault("BROADCAST.FLUSH_EVERY", 25)
	v.SetDefault("WEBAPP.DIR", "./web")
}
