// Package loader mounts optional features on the HTTP router.
//
// A feature reports its name and whether the configuration enables it. LoadAll skips
// disabled features and stops at the first one that fails to load, so a misconfigured
// feature keeps the server from starting instead of serving a partial API.
//
//	mgr := loader.NewManager()
//	mgr.Register(furniture.NewFeature(cfg.Furniture, cfg.Sync, deps))
//	if err := mgr.LoadAll(app); err != nil {
//	    return err
//	}
package loader
