//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package scheduler

import (
	"context"
	"log/slog"

	"github.com/fogfish/suitestarter/internal/manifest"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Kubernetes creates batch/v1 Job in the cluster
type Kubernetes struct {
	api       kubernetes.Interface
	namespace string
}

func NewKubernetes(api kubernetes.Interface, namespace string) *Kubernetes {
	return &Kubernetes{
		api:       api,
		namespace: namespace,
	}
}

// NewClientset connects to cluster either with in-cluster credentials or
// with kubeconfig
func NewClientset(inCluster bool, kubeconfig string) (kubernetes.Interface, error) {
	var (
		cfg *rest.Config
		err error
	)

	if inCluster {
		cfg, err = rest.InClusterConfig()
	} else {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, err
	}

	return kubernetes.NewForConfig(cfg)
}

func (s *Kubernetes) Submit(ctx context.Context, val manifest.Value) (string, error) {
	job, err := Job(val)
	if err != nil {
		return "", err
	}

	namespace := job.Namespace
	if namespace == "" {
		namespace = s.namespace
	}

	out, err := s.api.BatchV1().Jobs(namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return "", err
	}

	slog.Info("job scheduled", "job", out.Name, "namespace", out.Namespace)

	return out.Name, nil
}
