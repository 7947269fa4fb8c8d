package furniture

import (
	"syncstore/core/provider"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface. The service is started by Load.
type Feature struct {
	cfg      Config
	settings provider.Settings
	deps     Dependencies
	service  *Service
}

// NewFeature creates a new Furniture feature.
func NewFeature(cfg Config, settings provider.Settings, deps Dependencies) *Feature {
	return &Feature{cfg: cfg, settings: settings, deps: deps}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "furniture"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.cfg.Enabled
}

// Load starts the service and registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	svc, err := NewService(f.cfg, f.settings, f.deps)
	if err != nil {
		return err
	}
	f.service = svc
	NewHandler(svc, f.deps.Logger).RegisterRoutes(app)
	return nil
}

// Service returns the running service, or ErrNotLoaded.
func (f *Feature) Service() (*Service, error) {
	if f.service == nil {
		return nil, ErrNotLoaded
	}
	return f.service, nil
}

// Close stops the service if it was started.
func (f *Feature) Close() error {
	if f.service == nil {
		return nil
	}
	return f.service.Close()
}
