package domain

import "time"

// SubscriptionStatus é a nossa interpretação do estado da assinatura.
// Não é um espelho do status da Stripe (veja StatusFromProvider).
type SubscriptionStatus string

const (
	StatusNone      SubscriptionStatus = "none"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
	StatusPastDue   SubscriptionStatus = "past_due"
)

// Plan identifica o plano contratado.
type Plan string

const (
	PlanIndividualMonthly Plan = "individual_monthly"
	PlanIndividualAnnual  Plan = "individual_annual"
	PlanBusinessYearly    Plan = "business_yearly"
)

// Valid informa se o plano é um dos conhecidos.
func (p Plan) Valid() bool {
	switch p {
	case PlanIndividualMonthly, PlanIndividualAnnual, PlanBusinessYearly:
		return true
	}
	return false
}

// StatusFromProvider converte o status bruto da assinatura na Stripe para o nosso enum.
func StatusFromProvider(raw string) SubscriptionStatus {
	switch raw {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled":
		return StatusCancelled
	case "incomplete_expired":
		return StatusExpired
	default:
		// incomplete, paused e qualquer status novo
		return StatusNone
	}
}

// Profile é o registro por usuário final que acompanha o estado de cobrança.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// IDs na Stripe ("cus_..." e "sub_..."). Vazios até o primeiro checkout.
	StripeCustomerID     string `json:"-"`
	StripeSubscriptionID string `json:"-"`

	SubscriptionStatus           SubscriptionStatus `json:"subscription_status"`
	SubscriptionPlan             Plan               `json:"subscription_plan,omitempty"`
	SubscriptionCurrentPeriodEnd *time.Time         `json:"subscription_current_period_end,omitempty"`

	// LastEventAt é o "created" do último evento da Stripe aplicado ao perfil.
	LastEventAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasActiveSubscription é a regra que libera downloads.
func (p Profile) HasActiveSubscription() bool {
	return p.SubscriptionStatus == StatusActive
}

// ProfileUpdate descreve os campos que um evento sobrescreve. Campos nil não são tocados.
type ProfileUpdate struct {
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionStatus   *SubscriptionStatus
	SubscriptionPlan     *Plan
	CurrentPeriodEnd     *time.Time

	// EventAt ordena as escritas: um evento mais antigo que o último aplicado
	// só preenche campos vazios.
	EventAt   time.Time
	UpdatedAt time.Time
}
