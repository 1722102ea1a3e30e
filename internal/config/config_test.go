//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package config_test

import (
	"testing"
	"time"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/suitestarter/internal/config"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(config.EnvSuiteRunner, "registry.local/etos-suite-runner:1.0")
	t.Setenv(config.EnvETOSConfigMap, "etos")
	t.Setenv(config.EnvObservabilityConfigMap, "")

	cfg := config.FromEnv()

	it.Then(t).Should(
		it.Equal(cfg.SuiteRunnerImage, "registry.local/etos-suite-runner:1.0"),
		it.Equal(cfg.ETOSConfigMap, "etos"),
		it.Equal(cfg.ObservabilityConfigMap, config.Null),
		it.Equal(len(cfg.Missing()), 0),
	)

	t.Run("MapHasEveryKey", func(t *testing.T) {
		kv := cfg.Map()
		it.Then(t).Should(
			it.Equal(len(kv), 10),
			it.Equal(kv[config.EnvSuiteRunner], cfg.SuiteRunnerImage),
			it.Equal(kv[config.EnvSidecarImage], config.Null),
		)
	})
}

func TestMissing(t *testing.T) {
	t.Setenv(config.EnvSuiteRunner, "")
	t.Setenv(config.EnvETOSConfigMap, "")

	seq := config.FromEnv().Missing()
	it.Then(t).Should(
		it.Equal(len(seq), 2),
		it.Equal(seq[0], config.EnvETOSConfigMap),
		it.Equal(seq[1], config.EnvSuiteRunner),
	)
}

func TestIsSet(t *testing.T) {
	it.Then(t).Should(
		it.True(config.IsSet("etos")),
	)
	it.Then(t).ShouldNot(
		it.True(config.IsSet("")),
		it.True(config.IsSet(config.Null)),
	)
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("SUITE_STARTER_BROKER", "")
	t.Setenv("SUITE_STARTER_BACKEND", "")

	s, err := config.LoadSettings()
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(s.TemplatePath, config.DefaultTemplatePath),
		it.Equal(s.Broker, config.BrokerNATS),
		it.Equal(s.Backend, config.BackendKubernetes),
		it.Equal(s.KeepAlive, 60*time.Second),
		it.Equal(s.NATS.RedeliveryDelay, 10*time.Second),
		it.Equal(s.NATS.MaxDeliver, 5),
	)

	t.Run("InCluster", func(t *testing.T) {
		t.Setenv("DOCKER_CONTEXT", "yes")
		s, err := config.LoadSettings()
		it.Then(t).Should(
			it.Nil(err),
			it.True(s.InCluster),
		)
	})

	t.Run("UnsupportedBroker", func(t *testing.T) {
		t.Setenv("SUITE_STARTER_BROKER", "rabbitmq")
		_, err := config.LoadSettings()
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("InvalidMaxDeliver", func(t *testing.T) {
		t.Setenv("NATS_MAX_DELIVER", "-1")
		_, err := config.LoadSettings()
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("BatchRequiresQueue", func(t *testing.T) {
		t.Setenv("SUITE_STARTER_BACKEND", config.BackendBatch)
		t.Setenv("BATCH_JOB_QUEUE", "")
		_, err := config.LoadSettings()
		it.Then(t).ShouldNot(it.Nil(err))
	})
}
