// Package service contains the payment action router: the stateless mapping
// from an authenticated client intent to calls against the Pi platform and,
// when settlement is required, the ledger. The platform and the ledger are the
// systems of record; nothing here persists payment state.
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pi-gateway/apperr"
	"pi-gateway/config"
	"pi-gateway/lock"
	"pi-gateway/logging"
	"pi-gateway/models"
)

// createLockTTL bounds the advisory lock held across the a2u_create
// list-then-create sequence.
const createLockTTL = 15 * time.Second

// PlatformAPI is the slice of the platform client the router dispatches to.
type PlatformAPI interface {
	Me(ctx context.Context, accessToken string) (*models.User, error)
	AdStatus(ctx context.Context, adID string) (*models.AdStatus, error)
	IncompletePayments(ctx context.Context) ([]models.PaymentRecord, error)
	CreatePayment(ctx context.Context, args *models.A2UPaymentArgs) (*models.PaymentRecord, error)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	ApprovePayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	CompletePayment(ctx context.Context, paymentID, txid string) (*models.PaymentRecord, error)
	CancelPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}

// Settler settles A2U payments on chain.
type Settler interface {
	Configured() bool
	Settle(ctx context.Context, rec *models.PaymentRecord) (string, error)
}

// Result is a successful action outcome: the upstream data plus any extra
// top-level keys for the response envelope.
type Result struct {
	Data  any
	Extra map[string]any
}

// Gateway routes payment actions. It holds no mutable state; every request is
// handled independently against read-only configuration.
type Gateway struct {
	cfg      *config.Config
	platform PlatformAPI
	settler  Settler
	locker   lock.Locker
	tracer   trace.Tracer
}

// New builds the action router.
func New(cfg *config.Config, platform PlatformAPI, settler Settler, locker lock.Locker, tracer trace.Tracer) *Gateway {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Gateway{cfg: cfg, platform: platform, settler: settler, locker: locker, tracer: tracer}
}

// Handle executes one action. The caller must already be resolved for every
// action that requires one; auth_verify is the action that establishes it.
func (g *Gateway) Handle(ctx context.Context, caller *models.Caller, action models.Action, req *models.ActionRequest) (*Result, error) {
	ctx, span := g.startSpan(ctx, action)
	defer span.End()

	if action.RequiresAuth() && caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "authentication required")
	}
	if action.RequiresPaymentID() && req.PaymentID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "paymentId is required")
	}

	switch action.Verb {
	case models.VerbAuthVerify:
		return g.authVerify(ctx, req)
	case models.VerbAdVerify:
		return g.adVerify(ctx, req)
	case models.VerbConfigStatus:
		return g.configStatus(), nil
	case models.VerbA2UCreate:
		return g.a2uCreate(ctx, req)
	case models.VerbA2UIncomplete:
		return g.a2uIncomplete(ctx)
	case models.VerbApprove:
		return platformResult(g.platform.ApprovePayment(ctx, req.PaymentID))
	case models.VerbGet:
		return platformResult(g.platform.GetPayment(ctx, req.PaymentID))
	case models.VerbCancel:
		return platformResult(g.platform.CancelPayment(ctx, req.PaymentID))
	case models.VerbComplete:
		return g.complete(ctx, action, req)
	default:
		return nil, apperr.Newf(apperr.InvalidArgument, "unknown action %q", action.Name)
	}
}

// authVerify forwards the bearer access token to the identity endpoint. It is
// the only action that does not require a prior session; it establishes one at
// the caller's layer.
func (g *Gateway) authVerify(ctx context.Context, req *models.ActionRequest) (*Result, error) {
	if req.AccessToken == "" {
		return nil, apperr.New(apperr.InvalidArgument, "accessToken is required")
	}
	user, err := g.platform.Me(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}
	if user.UID == "" {
		return nil, apperr.New(apperr.UpstreamError, "identity provider returned no user identifier")
	}
	return &Result{Data: user}, nil
}

// adVerify reports whether a rewarded ad was actually granted. Anything other
// than the literal "granted" ack status is simply not rewarded; it is not an
// error.
func (g *Gateway) adVerify(ctx context.Context, req *models.ActionRequest) (*Result, error) {
	if req.AdID == "" {
		return nil, apperr.New(apperr.InvalidArgument, "adId is required")
	}
	status, err := g.platform.AdStatus(ctx, req.AdID)
	if err != nil {
		return nil, err
	}
	rewarded := status.MediatorAckStatus == models.MediatorGrantedLiteral
	return &Result{
		Data:  status,
		Extra: map[string]any{"rewarded": rewarded},
	}, nil
}

// configStatus reports which operational secrets are present without touching
// the network or revealing values.
func (g *Gateway) configStatus() *Result {
	return &Result{Data: models.ConfigStatus{
		PiAPIKey:      g.cfg.PiAPIKey != "",
		ValidationKey: g.cfg.ValidationKey != "",
		WalletSecret:  g.cfg.WalletSecret != "",
		WalletAddress: g.cfg.WalletAddress != "",
	}}
}

// a2uCreate opens an app-to-user payout. The platform allows only one
// incomplete A2U payment per app key, so an existing one for the same user is
// reused (making retries idempotent) and one for a different user is a
// conflict the caller must not be able to steal.
func (g *Gateway) a2uCreate(ctx context.Context, req *models.ActionRequest) (*Result, error) {
	args := req.Payment
	if err := validateA2UArgs(args); err != nil {
		return nil, err
	}

	release, acquired := g.locker.Acquire(ctx, "a2u_create:"+g.cfg.WalletAddress, createLockTTL)
	if !acquired {
		return nil, apperr.New(apperr.Conflict, "another A2U payment is currently being created")
	}
	defer release()

	incomplete, err := g.platform.IncompletePayments(ctx)
	if err != nil {
		return nil, err
	}
	for i := range incomplete {
		if incomplete[i].UserUID == args.UID {
			logging.Info("reusing incomplete A2U payment",
				zap.String("payment_id", incomplete[i].Identifier),
				zap.String("uid", args.UID),
			)
			return &Result{
				Data:  &incomplete[i],
				Extra: map[string]any{"reusedIncomplete": true},
			}, nil
		}
	}
	if len(incomplete) > 0 {
		return nil, apperr.New(apperr.Conflict, "an incomplete A2U payment exists for another user")
	}

	created, err := g.platform.CreatePayment(ctx, args)
	if err != nil {
		return nil, err
	}
	return &Result{Data: created}, nil
}

func (g *Gateway) a2uIncomplete(ctx context.Context) (*Result, error) {
	incomplete, err := g.platform.IncompletePayments(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: incomplete}, nil
}

// complete resolves the transaction id to report, then calls the platform.
// An explicit txid always wins. For the A2U variant with no explicit txid, the
// current record decides: an already-settled txid is reused, an unsettled
// app-to-user payment is settled on chain first. Anything else completes with
// an empty body; the platform is the source of truth for user-to-app flows.
func (g *Gateway) complete(ctx context.Context, action models.Action, req *models.ActionRequest) (*Result, error) {
	txid := req.TxID
	if txid == "" && action.A2U {
		rec, err := g.platform.GetPayment(ctx, req.PaymentID)
		if err != nil {
			return nil, err
		}
		switch {
		case rec.SettledTxID() != "":
			txid = rec.SettledTxID()
			logging.Info("reusing settled transaction id",
				zap.String("payment_id", req.PaymentID),
				zap.String("txid", txid),
			)
		case rec.Direction == models.DirectionAppToUser:
			if !g.settler.Configured() {
				return nil, apperr.New(apperr.ConfigError, "A2U wallet secret is not configured")
			}
			txid, err = g.settler.Settle(ctx, rec)
			if err != nil {
				return nil, err
			}
		}
	}
	return platformResult(g.platform.CompletePayment(ctx, req.PaymentID, txid))
}

func validateA2UArgs(args *models.A2UPaymentArgs) error {
	if args == nil {
		return apperr.New(apperr.InvalidArgument, "payment is required")
	}
	if !args.Amount.IsPositive() {
		return apperr.New(apperr.InvalidArgument, "payment.amount must be a positive number")
	}
	if args.Amount.Exponent() < -7 {
		return apperr.New(apperr.InvalidArgument, "payment.amount has more than 7 decimal places")
	}
	if args.UID == "" {
		return apperr.New(apperr.InvalidArgument, "payment.uid is required")
	}
	if strings.TrimSpace(args.Memo) == "" {
		return apperr.New(apperr.InvalidArgument, "payment.memo is required")
	}
	if args.Metadata == nil {
		return apperr.New(apperr.InvalidArgument, "payment.metadata must be an object")
	}
	return nil
}

func platformResult(rec *models.PaymentRecord, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Data: rec}, nil
}

func (g *Gateway) startSpan(ctx context.Context, action models.Action) (context.Context, trace.Span) {
	if g.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := g.tracer.Start(ctx, "payment_action")
	span.SetAttributes(attribute.String("payment.action", action.Name))
	return ctx, span
}
