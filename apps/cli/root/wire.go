package root

import (
	"github.com/zenGate-Global/freightdesk/apps/cli/cmd/auth"
	"github.com/zenGate-Global/freightdesk/apps/cli/cmd/bootstrap"
	featurescmd "github.com/zenGate-Global/freightdesk/apps/cli/cmd/features"
	tenantcmd "github.com/zenGate-Global/freightdesk/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(featurescmd.Command())
}
