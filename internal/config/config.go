package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/willjrcristo/storefront-billing/internal/domain"
)

// Config reúne tudo o que a API precisa ler do ambiente.
type Config struct {
	Addr     string
	SiteURL  string
	AdminKey string

	DBDriver    string // "sqlite3" ou "pgx"
	DatabaseURL string

	Stripe StripeConfig
	R2     R2Config

	AuthJWTSecret string
}

// StripeConfig guarda as chaves e os Price IDs configurados no Dashboard da Stripe.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string

	IndividualMonthlyPriceID string
	IndividualAnnualPriceID  string
	BusinessPriceID          string

	// DefaultPlan é usado quando o preço da assinatura não está mapeado.
	// Vazio significa "preço desconhecido é erro".
	DefaultPlan domain.Plan

	// EscalateUnresolved faz o webhook responder 500 para eventos que não
	// encontram um perfil, forçando a Stripe a reenviar.
	EscalateUnresolved bool
}

// R2Config aponta para o bucket compatível com S3 que guarda os arquivos de download.
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	DownloadTTL     time.Duration
}

// Load lê um .env opcional e depois o ambiente do processo.
// Variáveis do processo têm prioridade sobre o arquivo.
func Load(envFiles ...string) (Config, error) {
	fileEnv := map[string]string{}
	for _, f := range envFiles {
		if vals, err := godotenv.Read(f); err == nil {
			fileEnv = vals
			break
		}
	}

	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		if v, ok := fileEnv[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	ttl, err := time.ParseDuration(get("DOWNLOAD_URL_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("DOWNLOAD_URL_TTL inválido: %w", err)
	}

	escalate, err := strconv.ParseBool(get("WEBHOOK_ESCALATE_UNRESOLVED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("WEBHOOK_ESCALATE_UNRESOLVED inválido: %w", err)
	}

	defaultPlan := domain.Plan(get("STRIPE_DEFAULT_PLAN", ""))
	if defaultPlan != "" && !defaultPlan.Valid() {
		return Config{}, fmt.Errorf("STRIPE_DEFAULT_PLAN desconhecido: %q", defaultPlan)
	}

	cfg := Config{
		Addr:        get("APP_ADDR", ":8080"),
		SiteURL:     strings.TrimRight(get("SITE_URL", "http://localhost:8888"), "/"),
		AdminKey:    get("ADMIN_KEY", ""),
		DBDriver:    get("DB_DRIVER", "sqlite3"),
		DatabaseURL: get("DATABASE_URL", "./sqlite-database.db"),
		Stripe: StripeConfig{
			SecretKey:                get("STRIPE_SECRET_KEY", ""),
			WebhookSecret:            get("STRIPE_WEBHOOK_SECRET", ""),
			IndividualMonthlyPriceID: get("STRIPE_INDIVIDUAL_MONTHLY_PRICE_ID", ""),
			IndividualAnnualPriceID:  get("STRIPE_INDIVIDUAL_ANNUAL_PRICE_ID", ""),
			BusinessPriceID:          get("STRIPE_BUSINESS_PRICE_ID", get("STRIPE_PRICE_BUSINESS_YEARLY", "")),
			DefaultPlan:              defaultPlan,
			EscalateUnresolved:       escalate,
		},
		R2: R2Config{
			Endpoint:        get("R2_ENDPOINT", ""),
			AccessKeyID:     get("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: get("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      get("R2_BUCKET_NAME", ""),
			DownloadTTL:     ttl,
		},
		AuthJWTSecret: get("AUTH_JWT_SECRET", ""),
	}

	return cfg, nil
}

// Validate devolve todos os campos obrigatórios que estão faltando de uma vez.
func (c Config) Validate() error {
	var errs []error
	required := []struct{ key, value string }{
		{"ADMIN_KEY", c.AdminKey},
		{"DATABASE_URL", c.DatabaseURL},
		{"STRIPE_SECRET_KEY", c.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret},
		{"AUTH_JWT_SECRET", c.AuthJWTSecret},
		{"R2_BUCKET_NAME", c.R2.BucketName},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s é obrigatório", r.key))
		}
	}
	if c.DBDriver != "sqlite3" && c.DBDriver != "pgx" {
		errs = append(errs, fmt.Errorf("DB_DRIVER deve ser sqlite3 ou pgx, recebido %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

// Plans monta o mapeamento price ID -> plano a partir dos IDs configurados.
// IDs vazios são ignorados.
func (s StripeConfig) Plans() map[string]domain.Plan {
	plans := map[string]domain.Plan{}
	if s.IndividualMonthlyPriceID != "" {
		plans[s.IndividualMonthlyPriceID] = domain.PlanIndividualMonthly
	}
	if s.IndividualAnnualPriceID != "" {
		plans[s.IndividualAnnualPriceID] = domain.PlanIndividualAnnual
	}
	if s.BusinessPriceID != "" {
		plans[s.BusinessPriceID] = domain.PlanBusinessYearly
	}
	return plans
}
