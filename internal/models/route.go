package models

// RouteName names a navigable screen.
type RouteName string

const (
	RouteHome           RouteName = "Home"
	RouteLogin          RouteName = "Login"
	RouteRegister       RouteName = "Register"
	RouteProducts       RouteName = "Products"
	RouteProductDetail  RouteName = "ProductDetail"
	RouteCart           RouteName = "Cart"
	RouteCheckout       RouteName = "Checkout"
	RouteOrders         RouteName = "Orders"
	RouteFavorites      RouteName = "Favorites"
	RouteProfile        RouteName = "Profile"
	RouteAdminLogin     RouteName = "AdminLogin"
	RouteAdminDashboard RouteName = "AdminDashboard"
	RouteAdminProducts  RouteName = "AdminProducts"
	RouteAdminOrders    RouteName = "AdminOrders"
)

// RouteMeta holds the access flags of a route.
type RouteMeta struct {
	RequiresAuth  bool `json:"requiresAuth,omitempty"`
	RequiresAdmin bool `json:"requiresAdmin,omitempty"`
	UserOnly      bool `json:"userOnly,omitempty"`
}
