// Package app composes the tip layer into a running application.
//
// The layout follows a thin composition pattern:
//
//	internal/app/
//	├── application.go      # Application struct and service wiring
//	├── domain/tip/         # Domain models: tips, balances, profiles
//	├── storage/            # Store interfaces plus memory and postgres backends
//	├── services/           # Ledger, profiles, tip log, and the tipping orchestrator
//	├── events/             # Event payloads and publishers
//	├── auth/               # Participant proof issuing and verification
//	├── httpapi/            # REST handlers
//	└── metrics/            # Prometheus instrumentation
//
// Business rules live in the services; this package only wires them
// together with their stores and external collaborators.
package app
