package backend

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/logger"
)

const userResource = "user"

// notify sends the user without its password hash to the notifier. Failures are
// logged, the request has succeeded already.
func (b *Backend) notify(ctx context.Context, operation core.Operation, user csql.Row) {
	if b.notifier == nil {
		return
	}
	rlog := logger.FromContext(ctx)
	payload := csql.Row{}
	for k, v := range user {
		if k != "password" {
			payload[k] = v
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		rlog.WithError(err).Errorln("Error 4741: cannot marshal notification")
		return
	}
	if err := b.notifier.Notify(ctx, userResource, operation, body); err != nil {
		rlog.WithError(err).Errorln("Error 4740: cannot notify", operation, userResource)
	}
}
