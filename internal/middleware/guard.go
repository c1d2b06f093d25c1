package middleware

import (
	"errors"
	"fmt"

	"etalase/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrUnknownRoute is returned when navigating to a route that is not in the table.
var ErrUnknownRoute = errors.New("unknown route")

// Routes is the storefront route table.
var Routes = map[models.RouteName]models.RouteMeta{
	models.RouteHome:          {},
	models.RouteLogin:         {},
	models.RouteRegister:      {},
	models.RouteProducts:      {},
	models.RouteProductDetail: {},

	models.RouteCart:      {RequiresAuth: true, UserOnly: true},
	models.RouteCheckout:  {RequiresAuth: true, UserOnly: true},
	models.RouteOrders:    {RequiresAuth: true, UserOnly: true},
	models.RouteFavorites: {RequiresAuth: true},
	models.RouteProfile:   {RequiresAuth: true},

	models.RouteAdminLogin:     {},
	models.RouteAdminDashboard: {RequiresAdmin: true},
	models.RouteAdminProducts:  {RequiresAdmin: true},
	models.RouteAdminOrders:    {RequiresAdmin: true},
}

// Decision is the outcome of a navigation check. Redirect is set when
// Allowed is false.
type Decision struct {
	Allowed  bool
	Redirect models.RouteName
}

// Decide applies the access rules in order: admin routes turn away
// non-admins, auth routes turn away anonymous visitors, user-only routes
// turn away admins.
func Decide(meta models.RouteMeta, identity *models.Identity) Decision {
	switch {
	case meta.RequiresAdmin && !identity.IsAdmin():
		return Decision{Redirect: models.RouteAdminLogin}
	case meta.RequiresAuth && identity == nil:
		return Decision{Redirect: models.RouteLogin}
	case meta.UserOnly && identity.IsAdmin():
		return Decision{Redirect: models.RouteAdminDashboard}
	}
	return Decision{Allowed: true}
}

// IdentityReader supplies the identity a Guard checks against.
type IdentityReader interface {
	Current() *models.Identity
}

// Guard checks navigation against the route table.
type Guard struct {
	identity IdentityReader
	routes   map[models.RouteName]models.RouteMeta
}

// NewGuard creates a Guard over the standard route table.
func NewGuard(identity IdentityReader) *Guard {
	return &Guard{identity: identity, routes: Routes}
}

// Navigate decides whether the current identity may open route name.
func (g *Guard) Navigate(name models.RouteName) (Decision, error) {
	meta, ok := g.routes[name]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	d := Decide(meta, g.identity.Current())
	if !d.Allowed {
		log.Debug().Str("route", string(name)).Str("redirect", string(d.Redirect)).Msg("navigation redirected")
	}
	return d, nil
}
