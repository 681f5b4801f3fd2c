// Package config defines the planner configuration model, its defaults and
// validation, along with the Loader interface that format-specific readers
// implement.
//
// The model is format-agnostic. The HCL reader lives in hcl_adapter; the app
// package maps the model onto the options of each component.
package config
