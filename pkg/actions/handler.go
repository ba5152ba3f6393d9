package actions

import (
	"context"

	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/session"
)

// SessionProvider hands out the current automation session. The session may
// be replaced between steps by rotation, so handlers resolve it per call and
// never retain it.
type SessionProvider interface {
	Current(ctx context.Context) (session.Session, error)
}

// ExecContext is lent to a handler for the duration of one Execute call. It
// exposes the shared result map, the current session, and the workflow's
// named selectors.
type ExecContext struct {
	Results     core.ResultMap
	Sessions    SessionProvider
	Selectors   map[string]core.SelectorSpec
	Credentials core.Credentials
	Logger      core.Logger

	// RunSteps executes nested steps through the owning executor. Set by the
	// executor; used by the conditional handler.
	RunSteps func(ctx context.Context, steps []core.Step) error
}

// Selector resolves a name against the workflow's selector specs. An
// undeclared name is treated as a raw selector string, so simple workflows
// can inline CSS selectors without declaring them first.
func (ec *ExecContext) Selector(nameOrRaw string) core.SelectorSpec {
	if spec, ok := ec.Selectors[nameOrRaw]; ok {
		return spec
	}
	return core.SelectorSpec{Name: nameOrRaw, Selector: nameOrRaw}
}

// Handler executes one workflow action. Implementations are stateless; all
// mutation goes through the ExecContext's result map and session.
type Handler interface {
	Execute(ctx context.Context, ec *ExecContext, params Params) error
}
