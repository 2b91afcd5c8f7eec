// Package gclplugin integrates the fixproof rules into golangci-lint
// as a module plugin.
//
// Add the module to .custom-gcl.yaml and run golangci-lint custom:
//
//	plugins:
//	  - module: github.com/SergeiSkv/FixProof
//	    import: github.com/SergeiSkv/FixProof/gclplugin
//	    version: latest
//
// Then enable the custom linter named fixproof in .golangci.yaml.
package gclplugin

import (
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"

	"github.com/SergeiSkv/FixProof/internal/registry"
)

func init() { register.Plugin("fixproof", New) }

// Settings represents the configuration options for the plugin.
type Settings struct {
	// Rules lists rule or group names to run. Empty means the bundled
	// rules.
	Rules []string `json:"rules"`
}

// New creates the plugin instance from golangci-lint settings.
func New(rawSettings any) (register.LinterPlugin, error) {
	settings, err := register.DecodeSettings[Settings](rawSettings)
	if err != nil {
		return nil, err
	}
	return Plugin{settings: settings}, nil
}

// Plugin is the fixproof rule set as a register.LinterPlugin.
type Plugin struct {
	settings Settings
}

// BuildAnalyzers returns the configured analyzers.
func (p Plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	if len(p.settings.Rules) == 0 {
		return registry.Bundled(), nil
	}
	return registry.Select(p.settings.Rules)
}

// GetLoadMode returns the golangci load mode.
func (Plugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
