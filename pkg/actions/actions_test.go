package actions_test

import (
	"context"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/session"
	"github.com/calewin/fieldhand/pkg/session/sessiontest"
)

// staticProvider hands the same session to every handler call.
type staticProvider struct {
	sess session.Session
}

func (p staticProvider) Current(ctx context.Context) (session.Session, error) {
	return p.sess, nil
}

func newExecContext(sess *sessiontest.Session, selectors ...core.SelectorSpec) *actions.ExecContext {
	specs := make(map[string]core.SelectorSpec, len(selectors))
	for _, s := range selectors {
		specs[s.Name] = s
	}
	return &actions.ExecContext{
		Results:   make(core.ResultMap),
		Sessions:  staticProvider{sess: sess},
		Selectors: specs,
		Logger:    log.Nop(),
	}
}
