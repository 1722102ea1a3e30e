//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const DefaultTemplatePath = "/app/suite_runner_template.yaml"

// Message brokers
const (
	BrokerNATS  = "nats"
	BrokerSwarm = "swarm"
)

// Job submission backends
const (
	BackendKubernetes = "kubernetes"
	BackendBatch      = "batch"
)

// Settings of suite starter process
type Settings struct {
	TemplatePath string

	Broker string
	NATS   NATS

	// AWS SQS queue consumed via swarm
	SwarmQueue string

	Backend string

	// Kubernetes namespace of suite runner jobs
	Namespace string

	// Use in-cluster credentials of Kubernetes
	InCluster  bool
	Kubeconfig string

	// AWS Batch job queue and definition
	BatchQueue      string
	BatchDefinition string

	// Listen address of metrics endpoint, disabled if empty
	MetricsAddr string

	KeepAlive time.Duration

	// OTLP collector endpoint, tracing is disabled if empty
	OTelEndpoint string
}

type NATS struct {
	URL     string
	Stream  string
	Subject string
	Queue   string

	// Failed events are redelivered after the delay, at most MaxDeliver times
	RedeliveryDelay time.Duration
	MaxDeliver      int
}

// LoadSettings reads the process settings from environment
func LoadSettings() (*Settings, error) {
	v := viper.New()

	v.SetDefault("suite_runner_template_path", DefaultTemplatePath)
	v.SetDefault("suite_starter_broker", BrokerNATS)
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("nats_stream", "EIFFEL")
	v.SetDefault("nats_subject", "eiffel."+"EiffelTestExecutionRecipeCollectionCreatedEvent")
	v.SetDefault("nats_queue", "suite-starter")
	v.SetDefault("nats_redelivery_delay", "10s")
	v.SetDefault("nats_max_deliver", 5)
	v.SetDefault("swarm_queue", "suite-starter")
	v.SetDefault("suite_starter_backend", BackendKubernetes)
	v.SetDefault("etos_namespace", "default")
	v.SetDefault("keepalive_interval", "60s")
	v.AutomaticEnv()

	s := &Settings{
		TemplatePath: v.GetString("suite_runner_template_path"),
		Broker:       v.GetString("suite_starter_broker"),
		NATS: NATS{
			URL:     v.GetString("nats_url"),
			Stream:  v.GetString("nats_stream"),
			Subject: v.GetString("nats_subject"),
			Queue:   v.GetString("nats_queue"),

			RedeliveryDelay: v.GetDuration("nats_redelivery_delay"),
			MaxDeliver:      v.GetInt("nats_max_deliver"),
		},
		SwarmQueue:      v.GetString("swarm_queue"),
		Backend:         v.GetString("suite_starter_backend"),
		Namespace:       v.GetString("etos_namespace"),
		InCluster:       v.GetString("docker_context") != "",
		Kubeconfig:      v.GetString("kubeconfig"),
		BatchQueue:      v.GetString("batch_job_queue"),
		BatchDefinition: v.GetString("batch_job_definition"),
		MetricsAddr:     v.GetString("metrics_addr"),
		KeepAlive:       v.GetDuration("keepalive_interval"),
		OTelEndpoint:    v.GetString("otel_exporter_otlp_endpoint"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) validate() error {
	switch s.Broker {
	case BrokerNATS, BrokerSwarm:
	default:
		return fmt.Errorf("unsupported broker %q", s.Broker)
	}

	switch s.Backend {
	case BackendKubernetes:
	case BackendBatch:
		if s.BatchQueue == "" || s.BatchDefinition == "" {
			return fmt.Errorf("batch backend requires BATCH_JOB_QUEUE and BATCH_JOB_DEFINITION")
		}
	default:
		return fmt.Errorf("unsupported backend %q", s.Backend)
	}

	if s.Broker == BrokerNATS && (s.NATS.MaxDeliver <= 0 || s.NATS.RedeliveryDelay < 0) {
		return fmt.Errorf("invalid redelivery policy, max deliver %d, delay %v", s.NATS.MaxDeliver, s.NATS.RedeliveryDelay)
	}

	if s.KeepAlive <= 0 {
		return fmt.Errorf("invalid keepalive interval %v", s.KeepAlive)
	}

	return nil
}
