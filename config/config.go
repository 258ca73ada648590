package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
	// AdminKey guards the admin endpoints. Empty disables them.
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	// BoardTTL bounds staleness of the read-only quest board view. The cache
	// is never consulted on a write path.
	BoardTTL time.Duration `mapstructure:"board_ttl"`
}

type GameConfig struct {
	// TimeScale compresses wall-clock durations for non-production runs.
	// 1 = real time. Threaded explicitly into the timing functions.
	TimeScale            float64       `mapstructure:"time_scale"`
	QuestCooldown        time.Duration `mapstructure:"quest_cooldown"`
	PartyTimeout         time.Duration `mapstructure:"party_timeout"`
	CycleLength          time.Duration `mapstructure:"cycle_length"`
	SweepInterval        time.Duration `mapstructure:"sweep_interval"`
	GoldLossRate         float64       `mapstructure:"gold_loss_rate"`
	MinQuestsPerLocation int           `mapstructure:"min_quests_per_location"`
	// PopulationPerQuest scales the generated batch: one quest per this many
	// inhabitants, floored at min_quests_per_location.
	PopulationPerQuest int `mapstructure:"population_per_quest"`
}

type WebhookConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/questworld.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.board_ttl", "1s")
	v.SetDefault("game.time_scale", 1.0)
	v.SetDefault("game.quest_cooldown", "4h")
	v.SetDefault("game.party_timeout", "2h")
	v.SetDefault("game.cycle_length", "24h")
	v.SetDefault("game.sweep_interval", "1m")
	v.SetDefault("game.gold_loss_rate", 0.10)
	v.SetDefault("game.min_quests_per_location", 3)
	v.SetDefault("game.population_per_quest", 50)
	v.SetDefault("webhook.timeout", "3s")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config carrying only the defaults, for callers that run
// without a config file (tests, embedded use).
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Mode: "sqlite", SQLitePath: "./data/questworld.db"},
		Cache:    CacheConfig{LocalGCInterval: 30 * time.Second, BoardTTL: time.Second},
		Game: GameConfig{
			TimeScale:            1.0,
			QuestCooldown:        4 * time.Hour,
			PartyTimeout:         2 * time.Hour,
			CycleLength:          24 * time.Hour,
			SweepInterval:        time.Minute,
			GoldLossRate:         0.10,
			MinQuestsPerLocation: 3,
			PopulationPerQuest:   50,
		},
		Webhook:  WebhookConfig{Timeout: 3 * time.Second},
		Security: SecurityConfig{RateLimitRPS: 100, RateLimitBurst: 200},
	}
}
