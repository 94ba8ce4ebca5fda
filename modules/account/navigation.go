package account

import (
	"context"

	"github.com/dmitrymomot/authgate/pkg/authsession"
)

type navigationKey struct{}

// navigation captures the route a manager asked to navigate to while
// serving one request.
type navigation struct {
	route string
}

func withNavigation(ctx context.Context) (context.Context, *navigation) {
	n := &navigation{}
	return context.WithValue(ctx, navigationKey{}, n), n
}

// Navigator turns manager navigation into the redirect of the request that
// triggered it. Register it on every manager:
//
//	authsession.NewRegistry(factory,
//	    authsession.WithManagerOptions(authsession.WithNavigator(account.Navigator())),
//	)
func Navigator() authsession.Navigator {
	return authsession.NavigatorFunc(func(ctx context.Context, route string) {
		if n, ok := ctx.Value(navigationKey{}).(*navigation); ok {
			n.route = route
		}
	})
}
