// Command kernel runs the governance kernel core: Router, Commitment
// Gate, Policy Engine, Ledger, and Profile Enforcer wired together. It is
// not an HTTP or CLI surface (those are explicitly out of scope) — it
// loads configuration, constructs the kernel, and drives a demonstration
// submission loop reading newline-delimited commitment JSON from stdin,
// for manual and integration testing of the wiring.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mapleaiorg/kernel/pkg/config"
	"github.com/mapleaiorg/kernel/pkg/contracts"
	"github.com/mapleaiorg/kernel/pkg/gate"
	"github.com/mapleaiorg/kernel/pkg/ledger"
	"github.com/mapleaiorg/kernel/pkg/observability"
	"github.com/mapleaiorg/kernel/pkg/policy"
	"github.com/mapleaiorg/kernel/pkg/profile"
	"github.com/mapleaiorg/kernel/pkg/router"
)

func main() {
	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr))
}

// kernel bundles the five components a running node needs.
type kernel struct {
	router   *router.Router
	gate     *gate.Gate
	profiles *gate.StaticProfileStore
	ledger   ledger.Ledger
	obs      *observability.Provider
}

// Run is the process entrypoint, separated from main for testability.
func Run(stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	k, err := buildKernel(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to build kernel: %v\n", err)
		return 5
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := k.obs.Shutdown(shutdownCtx); err != nil {
			slog.Error("observability shutdown failed", "error", err)
		}
		if closer, ok := k.ledger.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				slog.Error("ledger close failed", "error", err)
			}
		}
	}()

	return k.runSubmissionLoop(ctx, stdin, stdout, stderr)
}

func buildKernel(ctx context.Context, cfg *config.Config) (*kernel, error) {
	obsConfig := observability.DefaultConfig()
	obsConfig.ServiceName = "governance-kernel"
	obsConfig.Environment = cfg.Environment
	obsConfig.OTLPEndpoint = cfg.OTLPEndpoint
	obsConfig.Enabled = cfg.ObservabilityOn
	obsConfig.Insecure = cfg.ObservabilityInsecure

	obs, err := observability.New(ctx, obsConfig)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	led, err := ledger.OpenSQLite(cfg.LedgerDSN, cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	profiles := gate.NewStaticProfileStore()

	return &kernel{
		router:   router.NewRouter(cfg.NodeID),
		gate:     gate.New(policy.NewEngine(), led, profiles),
		profiles: profiles,
		ledger:   led,
		obs:      obs,
	}, nil
}

// submissionRequest is the newline-delimited JSON shape the demonstration
// loop reads from stdin: a bare commitment plus, optionally, which worldline
// profile to assign its declaring worldline. A non-empty Profile replaces
// any earlier assignment for that worldline.
type submissionRequest struct {
	Commitment contracts.Commitment `json:"commitment"`
	Profile    string               `json:"profile,omitempty"`
}

func (k *kernel) runSubmissionLoop(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) int {
	scanner := bufio.NewScanner(stdin)
	exitCode := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return exitCode
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req submissionRequest
		if err := json.Unmarshal(line, &req); err != nil {
			fmt.Fprintf(stderr, "bad input: %v\n", err)
			exitCode = 4
			continue
		}

		if req.Profile != "" {
			k.profiles.Assign(req.Commitment.Declaring, resolveProfile(req.Profile))
		}
		if req.Commitment.ID == "" {
			req.Commitment.ID = contracts.NewCommitmentID()
		}
		if req.Commitment.Nonce == "" {
			req.Commitment.Nonce = randomNonce()
		}

		envelope, err := contracts.NewEnvelope(contracts.EnvelopeHeader{
			EnvelopeID: contracts.NewEventID(),
			Origin:     req.Commitment.Declaring,
			CreatedAt:  contracts.TemporalAnchor{PhysicalMs: time.Now().UnixMilli()},
			TTLMs:      60_000,
		}, contracts.EnvelopeBody{Commitment: &req.Commitment})
		if err != nil {
			fmt.Fprintf(stderr, "bad envelope: %v\n", err)
			exitCode = 4
			continue
		}

		_, routeDone := k.obs.TrackOperation(ctx, "router.route")
		decision := k.router.Route(envelope)
		routeDone(nil)

		if decision.Kind != router.DecisionRouteToGate {
			fmt.Fprintf(stderr, "envelope not routed to gate: %s\n", decision.Kind)
			exitCode = 4
			continue
		}

		_, submitDone := k.obs.TrackOperation(ctx, "gate.submit")
		outcome, err := k.gate.Submit(*envelope.Body.Commitment)
		submitDone(err)

		if err != nil {
			fmt.Fprintf(stderr, "submit failed: %v\n", err)
			if kerr, ok := err.(*contracts.KernelError); ok {
				exitCode = kerr.ExitCode()
			} else {
				exitCode = 5
			}
			continue
		}

		out, err := json.Marshal(outcome)
		if err != nil {
			fmt.Fprintf(stderr, "encoding outcome: %v\n", err)
			exitCode = 5
			continue
		}
		fmt.Fprintln(stdout, string(out))

		if outcome.Card.Decision == contracts.DecisionDeny && exitCode == 0 {
			exitCode = 3
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "reading input: %v\n", err)
		return 5
	}
	return exitCode
}

// resolveProfile maps the demonstration loop's profile names to the
// canonical profiles.
func resolveProfile(name string) contracts.Profile {
	switch name {
	case "human":
		return profile.Human()
	case "agent":
		return profile.Agent()
	case "financial":
		return profile.Financial()
	case "world":
		return profile.World()
	case "coordination":
		return profile.Coordination()
	default:
		return profile.Agent()
	}
}

func randomNonce() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "nonce-fallback"
	}
	return fmt.Sprintf("%x", buf)
}
