package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App              App              `mapstructure:",squash"`
	Server           Server           `mapstructure:",squash"`
	Database         Database         `mapstructure:",squash"`
	Auth             Auth             `mapstructure:",squash"`
	AnomalyDetection AnomalyDetection `mapstructure:",squash"`
	AnomalySync      AnomalySync      `mapstructure:",squash"`
}

type Server struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
	SSLMode  string `mapstructure:"database_sslmode"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Auth struct {
	Secret string `mapstructure:"auth_secret"`
}

// AnomalyDetection reúne os limites e a janela de análise dos detectores
type AnomalyDetection struct {
	LowRevenueFloor       float64       `mapstructure:"anomaly_low_revenue_floor"`
	DropRatio             float64       `mapstructure:"anomaly_drop_ratio"`
	SevereVolumeDropRatio float64       `mapstructure:"anomaly_severe_volume_drop_ratio"`
	DuplicateMinRepeats   int           `mapstructure:"anomaly_duplicate_min_repeats"`
	DuplicateWindowDays   int           `mapstructure:"anomaly_duplicate_window_days"`
	LookbackDays          int           `mapstructure:"anomaly_lookback_days"`
	Timezone              string        `mapstructure:"anomaly_timezone"`
	QueryTimeout          time.Duration `mapstructure:"anomaly_query_timeout"`
	DryRun                bool          `mapstructure:"anomaly_dry_run"`
}

type AnomalySync struct {
	CronSchedule string `mapstructure:"anomaly_detection_cron"`
	Enabled      bool   `mapstructure:"anomaly_detection_enabled"`
}

// Location retorna o fuso usado para decidir qual é o último dia completo
func (a AnomalyDetection) Location() *time.Location {
	if a.Timezone == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		logrus.WithError(err).Warnf("Fuso horário inválido: %s, usando horário local", a.Timezone)
		return time.Local
	}

	return loc
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/vendas")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")
	viper.SetDefault("DATABASE_SSLMODE", "disable")

	viper.SetDefault("AUTH_SECRET", "your_secret_key")

	// Limites dos detectores
	viper.SetDefault("ANOMALY_LOW_REVENUE_FLOOR", 10.0)            // R$ 10,00
	viper.SetDefault("ANOMALY_DROP_RATIO", 0.30)                   // 30% de queda
	viper.SetDefault("ANOMALY_SEVERE_VOLUME_DROP_RATIO", 0.60)     // acima disso a queda de volume é HIGH
	viper.SetDefault("ANOMALY_DUPLICATE_MIN_REPEATS", 3)           // 3 compras iguais no mesmo dia
	viper.SetDefault("ANOMALY_DUPLICATE_WINDOW_DAYS", 1)           // apenas o último dia completo
	viper.SetDefault("ANOMALY_LOOKBACK_DAYS", 7)                   // dias carregados para análise
	viper.SetDefault("ANOMALY_TIMEZONE", "America/Sao_Paulo")      // define o "dia completo"
	viper.SetDefault("ANOMALY_QUERY_TIMEOUT", "30s")               // timeout das consultas
	viper.SetDefault("ANOMALY_DRY_RUN", false)                     // não grava incidentes

	viper.SetDefault("ANOMALY_DETECTION_CRON", "0 7 * * *") // Todos os dias às 7h da manhã
	viper.SetDefault("ANOMALY_DETECTION_ENABLED", true)

	viper.SetDefault("LOG_LEVEL", "info")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	// Configurar valores padrão
	SetDefaults()

	// Configurar o Viper
	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env): ", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = BuildDSN(config.Database)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// BuildDSN monta a string de conexão. DATABASE_URL pode ser a URL completa
// (postgres://...) ou apenas host:porta/banco.
func BuildDSN(db Database) string {
	if strings.Contains(db.URL, "://") {
		return db.URL
	}

	dsn := fmt.Sprintf(
		"%s://%s:%s@%s",
		db.Driver,
		db.User,
		db.Password,
		db.URL,
	)

	if db.SSLMode != "" && !strings.Contains(db.URL, "sslmode=") {
		separator := "?"
		if strings.Contains(db.URL, "?") {
			separator = "&"
		}
		dsn = fmt.Sprintf("%s%ssslmode=%s", dsn, separator, db.SSLMode)
	}

	return dsn
}

// Validate verifica os limites de detecção
func (c *Config) Validate() error {
	a := c.AnomalyDetection

	if a.LowRevenueFloor < 0 {
		return fmt.Errorf("ANOMALY_LOW_REVENUE_FLOOR não pode ser negativo: %v", a.LowRevenueFloor)
	}
	if a.DropRatio <= 0 || a.DropRatio > 1 {
		return fmt.Errorf("ANOMALY_DROP_RATIO deve estar entre 0 e 1: %v", a.DropRatio)
	}
	if a.SevereVolumeDropRatio < a.DropRatio || a.SevereVolumeDropRatio > 1 {
		return fmt.Errorf("ANOMALY_SEVERE_VOLUME_DROP_RATIO deve estar entre ANOMALY_DROP_RATIO e 1: %v", a.SevereVolumeDropRatio)
	}
	if a.DuplicateMinRepeats < 2 {
		return fmt.Errorf("ANOMALY_DUPLICATE_MIN_REPEATS deve ser pelo menos 2: %d", a.DuplicateMinRepeats)
	}
	if a.DuplicateWindowDays < 1 {
		return fmt.Errorf("ANOMALY_DUPLICATE_WINDOW_DAYS deve ser pelo menos 1: %d", a.DuplicateWindowDays)
	}
	if a.LookbackDays < 2 {
		return fmt.Errorf("ANOMALY_LOOKBACK_DAYS deve ser pelo menos 2: %d", a.LookbackDays)
	}

	return nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	// Obter diretório atual
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		logrus.Debug("Tentando carregar .env de: ", location)
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de: ", location)
			return
		}
	}

	logrus.Debug("Nenhum arquivo .env encontrado, usando apenas variáveis de ambiente")
}
