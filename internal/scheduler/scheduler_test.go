//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package scheduler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/aws/aws-sdk-go-v2/service/batch/types"
	"github.com/fogfish/it/v2"
	"github.com/fogfish/suitestarter/internal/manifest"
	"github.com/fogfish/suitestarter/internal/scheduler"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const job = `
apiVersion: batch/v1
kind: Job
metadata:
  name: suite-runner-a1-x
  labels:
    app: suite-runner
    id: a1
spec:
  backoffLimit: 0
  template:
    spec:
      restartPolicy: Never
      containers:
      - name: suite-runner-a1-x
        image: registry.local/esr:1.0
        env:
        - name: TERCC
          value: '{"meta":{"id":"a1"}}'
        - name: RABBITMQ_PASSWORD
          valueFrom:
            secretKeyRef:
              name: rabbitmq
              key: password
`

func parse(t *testing.T, text string) manifest.Value {
	t.Helper()

	val, err := manifest.Parse([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	return val
}

func TestJob(t *testing.T) {
	val, err := scheduler.Job(parse(t, job))
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(val.Name, "suite-runner-a1-x"),
		it.Equal(val.Spec.Template.Spec.Containers[0].Image, "registry.local/esr:1.0"),
		it.Equal(*val.Spec.BackoffLimit, int32(0)),
	)

	t.Run("UnexpectedKind", func(t *testing.T) {
		_, err := scheduler.Job(parse(t, "kind: Pod\nmetadata: {name: x}\n"))
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("NoName", func(t *testing.T) {
		_, err := scheduler.Job(parse(t, "kind: Job\n"))
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := scheduler.Job(parse(t, "kind: Job\nmetadata: {name: x}\nspec: {backoffLimit: many}\n"))
		it.Then(t).ShouldNot(it.Nil(err))
	})
}

func TestKubernetes(t *testing.T) {
	api := fake.NewSimpleClientset()
	s := scheduler.NewKubernetes(api, "etos")

	name, err := s.Submit(context.Background(), parse(t, job))
	it.Then(t).Should(
		it.Nil(err),
		it.Equal(name, "suite-runner-a1-x"),
	)

	t.Run("Created", func(t *testing.T) {
		val, err := api.BatchV1().Jobs("etos").Get(context.Background(), name, metav1.GetOptions{})
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(val.Labels["id"], "a1"),
		)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		_, err := s.Submit(context.Background(), parse(t, job))
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("InvalidManifest", func(t *testing.T) {
		_, err := s.Submit(context.Background(), parse(t, "kind: Job\n"))
		it.Then(t).ShouldNot(it.Nil(err))
	})
}

type mock struct {
	expectVal *batch.SubmitJobInput
	returnVal *batch.SubmitJobOutput
}

func (m *mock) SubmitJob(ctx context.Context, params *batch.SubmitJobInput, optFns ...func(*batch.Options)) (*batch.SubmitJobOutput, error) {
	if aws.ToString(params.JobQueue) != aws.ToString(m.expectVal.JobQueue) {
		return nil, fmt.Errorf("unexpected job queue")
	}

	if aws.ToString(params.JobDefinition) != aws.ToString(m.expectVal.JobDefinition) {
		return nil, fmt.Errorf("unexpected job definition")
	}

	if aws.ToString(params.JobName) != aws.ToString(m.expectVal.JobName) {
		return nil, fmt.Errorf("unexpected job name")
	}

	if len(params.ContainerOverrides.Environment) != len(m.expectVal.ContainerOverrides.Environment) {
		return nil, fmt.Errorf("unexpected environment")
	}

	env := map[string]string{}
	for _, e := range params.ContainerOverrides.Environment {
		env[aws.ToString(e.Name)] = aws.ToString(e.Value)
	}
	for _, e := range m.expectVal.ContainerOverrides.Environment {
		if x, has := env[aws.ToString(e.Name)]; !has || x != aws.ToString(e.Value) {
			return nil, fmt.Errorf("unexpected environment override")
		}
	}

	if params.Tags["id"] != m.expectVal.Tags["id"] {
		return nil, fmt.Errorf("unexpected tags")
	}

	return m.returnVal, nil
}

func TestBatch(t *testing.T) {
	q := &mock{
		returnVal: &batch.SubmitJobOutput{JobId: aws.String("job-1")},
		expectVal: &batch.SubmitJobInput{
			JobName:       aws.String("suite-runner-a1-x"),
			JobDefinition: aws.String("test-job"),
			JobQueue:      aws.String("test-queue"),
			ContainerOverrides: &types.ContainerOverrides{
				Environment: []types.KeyValuePair{
					{Name: aws.String("TERCC"), Value: aws.String(`{"meta":{"id":"a1"}}`)},
				},
			},
			Tags: map[string]string{"id": "a1"},
		},
	}

	t.Run("SubmitJob", func(t *testing.T) {
		s := scheduler.NewBatch(q, "test-queue", "test-job")
		id, err := s.Submit(context.Background(), parse(t, job))
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(id, "job-1"),
		)
	})

	t.Run("SubmitJobFailed", func(t *testing.T) {
		s := scheduler.NewBatch(q, "unexpected-queue", "test-job")
		_, err := s.Submit(context.Background(), parse(t, job))
		it.Then(t).ShouldNot(it.Nil(err))
	})

	t.Run("NoContainers", func(t *testing.T) {
		s := scheduler.NewBatch(q, "test-queue", "test-job")
		_, err := s.Submit(context.Background(), parse(t, "kind: Job\nmetadata: {name: x}\n"))
		it.Then(t).ShouldNot(it.Nil(err))
	})
}
