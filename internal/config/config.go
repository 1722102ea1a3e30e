//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package config assembles the static deployment parameters of suite runner
// and the settings of suite starter process. Both are read once from
// the environment and never change afterwards.
package config

import "github.com/spf13/viper"

// Null is the value of every parameter missing in the environment.
// It is rendered as YAML null into the template.
const Null = "null"

// Environment variables of deployment parameters
const (
	EnvSuiteRunner            = "SUITE_RUNNER"
	EnvETOSConfigMap          = "ETOS_CONFIGMAP"
	EnvRabbitMQSecret         = "ETOS_RABBITMQ_SECRET"
	EnvObservabilityConfigMap = "ETOS_OBSERVABILITY_CONFIGMAP"
	EnvSidecarImage           = "ETOS_SIDECAR_IMAGE"
	EnvTTL                    = "ETOS_ESR_TTL"
	EnvGracePeriod            = "ETOS_TERMINATION_GRACE_PERIOD"
	EnvServiceAccount         = "ETOS_SERVICE_ACCOUNT"
	EnvOTelEndpoint           = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvHostname               = "HOSTNAME"
)

// Config is static deployment parameters of suite runner.
type Config struct {
	// Container image of suite runner
	SuiteRunnerImage string

	// Configmap attached to suite runner
	ETOSConfigMap string

	// Secret with message bus credentials
	RabbitMQSecret string

	// Optional configmap of observability integration
	ObservabilityConfigMap string

	// Optional image of log listener sidecar
	SidecarImage string

	// Seconds to keep finished job
	TTL string

	// Seconds to wait for graceful termination of suite runner
	GracePeriod string

	ServiceAccount string
	OTelEndpoint   string
	Hostname       string
}

// FromEnv reads the configuration from environment.
func FromEnv() Config {
	v := viper.New()

	get := func(env string) string {
		_ = v.BindEnv(env)
		if val := v.GetString(env); val != "" {
			return val
		}
		return Null
	}

	return Config{
		SuiteRunnerImage:       get(EnvSuiteRunner),
		ETOSConfigMap:          get(EnvETOSConfigMap),
		RabbitMQSecret:         get(EnvRabbitMQSecret),
		ObservabilityConfigMap: get(EnvObservabilityConfigMap),
		SidecarImage:           get(EnvSidecarImage),
		TTL:                    get(EnvTTL),
		GracePeriod:            get(EnvGracePeriod),
		ServiceAccount:         get(EnvServiceAccount),
		OTelEndpoint:           get(EnvOTelEndpoint),
		Hostname:               get(EnvHostname),
	}
}

// Map returns configuration as flat map, keyed by environment variable
func (c Config) Map() map[string]string {
	return map[string]string{
		EnvSuiteRunner:            c.SuiteRunnerImage,
		EnvETOSConfigMap:          c.ETOSConfigMap,
		EnvRabbitMQSecret:         c.RabbitMQSecret,
		EnvObservabilityConfigMap: c.ObservabilityConfigMap,
		EnvSidecarImage:           c.SidecarImage,
		EnvTTL:                    c.TTL,
		EnvGracePeriod:            c.GracePeriod,
		EnvServiceAccount:         c.ServiceAccount,
		EnvOTelEndpoint:           c.OTelEndpoint,
		EnvHostname:               c.Hostname,
	}
}

// Missing lists required parameters absent in the environment,
// in the order they are checked.
func (c Config) Missing() []string {
	seq := []string{}
	if !IsSet(c.ETOSConfigMap) {
		seq = append(seq, EnvETOSConfigMap)
	}
	if !IsSet(c.SuiteRunnerImage) {
		seq = append(seq, EnvSuiteRunner)
	}
	return seq
}

// IsSet checks that parameter has a value
func IsSet(val string) bool {
	return val != "" && val != Null
}
