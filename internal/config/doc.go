// Package config loads the reduction settings of the apall command.
//
// Settings start from [Default], are overlaid by an optional YAML file and
// then by ECHELLE_* environment variables, and are validated last. For
// example ECHELLE_TRACE_STEP=5 overrides trace.step.
package config
