package models

import "pi-gateway/apperr"

// Verb is the closed set of things the gateway can be asked to do. Dispatch is
// over this type, not raw strings, so adding or removing an action is a
// compile-time-checked change.
type Verb int

const (
	VerbAuthVerify Verb = iota
	VerbAdVerify
	VerbConfigStatus
	VerbA2UCreate
	VerbA2UIncomplete
	VerbApprove
	VerbComplete
	VerbCancel
	VerbGet
)

// Action is a parsed action name. A2U marks the a2u_-prefixed aliases of the
// per-payment verbs; a2u_complete is the only completion variant that may
// trigger on-chain settlement.
type Action struct {
	Verb Verb
	A2U  bool
	Name string
}

var actionNames = map[string]Action{
	"auth_verify":       {Verb: VerbAuthVerify},
	"ad_verify":         {Verb: VerbAdVerify},
	"a2u_config_status": {Verb: VerbConfigStatus, A2U: true},
	"a2u_create":        {Verb: VerbA2UCreate, A2U: true},
	"a2u_incomplete":    {Verb: VerbA2UIncomplete, A2U: true},

	"approve":         {Verb: VerbApprove},
	"payment_approve": {Verb: VerbApprove},
	"a2u_approve":     {Verb: VerbApprove, A2U: true},

	"complete":         {Verb: VerbComplete},
	"payment_complete": {Verb: VerbComplete},
	"a2u_complete":     {Verb: VerbComplete, A2U: true},

	"cancel":         {Verb: VerbCancel},
	"payment_cancel": {Verb: VerbCancel},
	"a2u_cancel":     {Verb: VerbCancel, A2U: true},

	"get":         {Verb: VerbGet},
	"payment_get": {Verb: VerbGet},
	"a2u_get":     {Verb: VerbGet, A2U: true},
}

// ParseAction resolves an action name, including its payment_/a2u_ aliases,
// failing with InvalidArgument for anything outside the closed set.
func ParseAction(name string) (Action, error) {
	a, ok := actionNames[name]
	if !ok {
		return Action{}, apperr.Newf(apperr.InvalidArgument, "unknown action %q", name)
	}
	a.Name = name
	return a, nil
}

// RequiresAuth reports whether the action needs an authenticated caller.
// auth_verify is the one action that establishes identity instead of
// requiring it.
func (a Action) RequiresAuth() bool {
	return a.Verb != VerbAuthVerify
}

// RequiresPaymentID reports whether the action operates on an existing
// payment.
func (a Action) RequiresPaymentID() bool {
	switch a.Verb {
	case VerbApprove, VerbComplete, VerbCancel, VerbGet:
		return true
	default:
		return false
	}
}
