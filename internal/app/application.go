package app

import (
	"fmt"

	"github.com/MicroTip-Network/tip_layer/internal/app/auth"
	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/events"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/ledger"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/profiles"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/tiplog"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/tipping"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage/memory"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Balances storage.BalanceStore
	Profiles storage.ProfileStore
	TipLog   storage.TipLogStore
}

// Dependencies carries the external collaborators of the engine.
type Dependencies struct {
	Transfer  tipping.Transferer
	Publisher events.Publisher
	Clock     tip.Clock
	Sequencer tipping.Sequencer
	Custodial string
	Auth      *auth.Manager
}

// Application ties the engine's services together.
type Application struct {
	log *logger.Logger

	Ledger   *ledger.Service
	Profiles *profiles.Service
	TipLog   *tiplog.Service
	Tipping  *tipping.Service
	Auth     *auth.Manager
}

// New builds a fully initialised application with the provided stores and
// collaborators.
func New(stores Stores, deps Dependencies, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth manager is required")
	}

	mem := memory.New()
	if stores.Balances == nil {
		stores.Balances = mem
	}
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.TipLog == nil {
		stores.TipLog = mem
	}
	if deps.Clock == nil {
		deps.Clock = tip.SystemClock{}
	}

	ledgerService := ledger.New(stores.Balances, log)
	profileService := profiles.New(stores.Profiles, deps.Clock, log)
	historyService := tiplog.New(stores.TipLog, log)

	tippingService, err := tipping.New(tipping.Config{
		Balances:  ledgerService,
		Profiles:  profileService,
		History:   historyService,
		Transfer:  deps.Transfer,
		Verifier:  deps.Auth,
		Clock:     deps.Clock,
		Sequencer: deps.Sequencer,
		Publisher: deps.Publisher,
		Custodial: deps.Custodial,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("configure orchestrator: %w", err)
	}

	return &Application{
		log:      log,
		Ledger:   ledgerService,
		Profiles: profileService,
		TipLog:   historyService,
		Tipping:  tippingService,
		Auth:     deps.Auth,
	}, nil
}
