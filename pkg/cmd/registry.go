// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/caselab/runway/pkg/registry"
	"github.com/caselab/runway/pkg/triggers/github"
	"github.com/caselab/runway/pkg/triggers/gitlab"
	"github.com/caselab/runway/pkg/triggers/manual"
)

func registerNativeTriggers(reg *registry.Registry) {
	reg.RegisterTrigger(gitlab.NewTriggerFactory())
	reg.RegisterTrigger(github.NewTriggerFactory())
	reg.RegisterTrigger(manual.NewTriggerFactory())
}

func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeTriggers(reg)

	return reg
}
