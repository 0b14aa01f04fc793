package checks

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"strings"
)

// PluginSymbol is the function a compiled plugin exports to add its
// variants. Its type must be func(*checks.Registry) error.
const PluginSymbol = "RegisterChecks"

// DiscoveryReport summarizes one discovery pass.
type DiscoveryReport struct {
	// Loaded lists the types registered during the pass, in load order.
	Loaded []string
	// Warnings describes every module that was skipped.
	Warnings []string
}

func (d *DiscoveryReport) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn("Plugin skipped", "reason", msg)
	d.Warnings = append(d.Warnings, msg)
}

// Discover scans dirs in order for compiled plugins (*.so) and script
// manifests (subdirectories holding check.yaml). A module that fails to load
// or register is reported and skipped; it never aborts the scan.
func (r *Registry) Discover(dirs []string) *DiscoveryReport {
	report := &DiscoveryReport{}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			report.warn("plugin directory %q is not readable: %v", dir, err)
			continue
		}

		slog.Debug("Scanning plugin directory", "dir", dir, "entries", len(entries))

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				if _, err := os.Stat(filepath.Join(path, ManifestFile)); err != nil {
					continue
				}
				r.loadManifest(path, report)
			case strings.EqualFold(filepath.Ext(entry.Name()), ".so"):
				r.loadPlugin(path, report)
			}
		}
	}

	if len(report.Loaded) > 0 {
		slog.Info("Plugins discovered", "types", strings.Join(report.Loaded, ","), "warnings", len(report.Warnings))
	}
	return report
}

func (r *Registry) loadManifest(dir string, report *DiscoveryReport) {
	m, err := LoadManifest(dir)
	if err != nil {
		report.warn("%s is malformed and will be disabled: %v", dir, err)
		return
	}
	if err := r.Register(m.Variant()); err != nil {
		report.warn("%s: %v", dir, err)
		return
	}
	report.Loaded = append(report.Loaded, m.Type)
}

func (r *Registry) loadPlugin(path string, report *DiscoveryReport) {
	register, err := openPlugin(path)
	if err != nil {
		report.warn("%s: %v", path, err)
		return
	}
	r.registerPlugin(path, register, report)
}

// registerPlugin runs a plugin's registration against a scratch registry and
// merges the result only if registration succeeds as a whole.
func (r *Registry) registerPlugin(source string, register func(*Registry) error, report *DiscoveryReport) {
	scratch := NewRegistry()
	if err := callRegister(register, scratch); err != nil {
		report.warn("%s: %v", source, err)
		return
	}

	loaded, err := r.merge(source, scratch)
	if err != nil {
		report.warn("%s: %v", source, err)
		return
	}
	report.Loaded = append(report.Loaded, loaded...)
}

func callRegister(register func(*Registry) error, scratch *Registry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin panicked: %v", rec)
		}
	}()

	if err := register(scratch); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// openPlugin loads a shared object and looks up its registration function.
func openPlugin(path string) (register func(*Registry) error, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin panicked: %v", rec)
		}
	}()

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin: %w", err)
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", PluginSymbol, err)
	}

	register, ok := sym.(func(*Registry) error)
	if !ok {
		return nil, fmt.Errorf("%s has type %T, expected func(*checks.Registry) error", PluginSymbol, sym)
	}
	return register, nil
}

// merge adds every variant of other to r, attributed to source. Nothing is
// added if any type is already registered.
func (r *Registry) merge(source string, other *Registry) ([]string, error) {
	variants := other.Variants()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range variants {
		if existing, exists := r.variants[v.Type]; exists {
			return nil, fmt.Errorf("check type '%s' is already registered by %s", v.Type, existing.Source)
		}
	}

	loaded := make([]string, 0, len(variants))
	for _, v := range variants {
		v.Source = source
		r.variants[v.Type] = v
		loaded = append(loaded, v.Type)
	}
	return loaded, nil
}
