package public

import "github.com/cubaneorg/cubane-sub000/internal/provider"

// Handler serves the storefront API: catalog, basket, checkout, order
// status and payment callbacks.
type Handler struct {
	*provider.Container
}

// New creates the storefront handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
