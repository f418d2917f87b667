package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Rooms  RoomsConfig
	Dice   DiceConfig
	Auth   AuthConfig
	Log    LogConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Driver   string // postgres 或 sqlite
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	DSN      string // sqlite 使用
	Prefix   string // master 資料庫名稱，房間資料庫為 <prefix>_room_<n>
}

type RoomsConfig struct {
	Total int
}

type DiceConfig struct {
	URL     string // BCDice-API 位址，空字串時使用本地擲骰
	Timeout time.Duration
}

type AuthConfig struct {
	TicketSecret string        `mapstructure:"ticket_secret"`
	TicketTTL    time.Duration `mapstructure:"ticket_ttl"`
}

type LogConfig struct {
	Level string
}

// Load 從 ./pkg/config 讀取 config.yaml
func Load() (*Config, error) {
	return LoadFrom("./pkg/config")
}

// LoadFrom 從指定目錄讀取設定，環境變數 TABLETOP_* 會覆蓋檔案中的值
func LoadFrom(paths ...string) (*Config, error) {
	// .env 不存在時忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("tabletop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "tabletop")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.dsn", "file:tabletop.db")
	v.SetDefault("db.prefix", "tabletop")
	v.SetDefault("rooms.total", 10)
	v.SetDefault("dice.url", "")
	v.SetDefault("dice.timeout", 5*time.Second)
	v.SetDefault("auth.ticket_secret", "change-me")
	v.SetDefault("auth.ticket_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
}
